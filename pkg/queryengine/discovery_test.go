package queryengine

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestIsDiscoveryQuery(t *testing.T) {
	assert.True(t, isDiscoveryQuery("Can you list endpoints for this API?"))
	assert.True(t, isDiscoveryQuery("API OVERVIEW please"))
	assert.False(t, isDiscoveryQuery("how do I configure retries"))
}

func TestPathPrefix(t *testing.T) {
	assert.Equal(t, "src", pathPrefix("src/async/mod.rs"))
	assert.Equal(t, "root", pathPrefix("README.md"))
	assert.Equal(t, "root", pathPrefix("/README.md"))
}
