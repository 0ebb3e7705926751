package validation

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCredentials(t *testing.T) {
	assert.NoError(t, Struct(Credentials{Username: "alice", Password: "pw1"}))

	err := Struct(Credentials{Username: "   ", Password: "pw1"})
	assert.EqualError(t, err, "Username is required")

	err = Struct(Credentials{Username: "alice"})
	assert.EqualError(t, err, "Password is required")

	err = Struct(Credentials{Username: strings.Repeat("a", 101), Password: "pw1"})
	assert.EqualError(t, err, "Username must be at most 100 characters")
}

func TestPasswordLimitCountsBytes(t *testing.T) {
	assert.NoError(t, Struct(Credentials{Username: "alice", Password: strings.Repeat("a", 72)}))
	assert.NoError(t, Struct(Credentials{Username: "alice", Password: strings.Repeat("é", 36)}))

	err := Struct(Credentials{Username: "alice", Password: strings.Repeat("é", 40)})
	assert.EqualError(t, err, "Password must be at most 72 bytes")

	err = Struct(Credentials{Username: "alice", Password: strings.Repeat("a", 73)})
	assert.EqualError(t, err, "Password must be at most 72 bytes")
}

func TestUpload(t *testing.T) {
	ok := Upload{DisplayName: "report", Category: "Network Security", Filename: "r.pdf"}
	assert.NoError(t, Struct(ok))

	missing := ok
	missing.DisplayName = ""
	assert.EqualError(t, Struct(missing), "Display name is required")

	noFile := ok
	noFile.Filename = " "
	assert.EqualError(t, Struct(noFile), "File is required")
}
