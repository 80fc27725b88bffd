package crypto

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSha256Hex(t *testing.T) {
	// echo -n abc | sha256sum
	assert.Equal(t, "ba7816bf8f01cfea414140de5dae2223b00361a396177a9cb410ff61f20015ad", Sha256Hex("abc"))
}

func TestSecretsEqual(t *testing.T) {
	assert.True(t, SecretsEqual("k3y", "k3y"))
	assert.False(t, SecretsEqual("k3y", "k3z"))
	assert.False(t, SecretsEqual("k3y", "k3yy"))
	assert.False(t, SecretsEqual("", "k3y"))
}
