package engine

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/growforge/planmesh/core"
)

func TestLeaseTable(t *testing.T) {
	leases := newLeaseTable()

	release, err := leases.acquire("inst-1")
	require.NoError(t, err)

	// Same instance is busy; a different instance is not.
	_, err = leases.acquire("inst-1")
	require.Error(t, err)
	assert.Equal(t, core.CodeBusy, core.CodeOf(err))

	release2, err := leases.acquire("inst-2")
	require.NoError(t, err)
	release2()

	release()
	_, err = leases.acquire("inst-1")
	require.NoError(t, err)
}

func TestLeaseReleaseIsIdempotent(t *testing.T) {
	leases := newLeaseTable()

	release, err := leases.acquire("inst-1")
	require.NoError(t, err)
	release()
	release()

	reacquired, err := leases.acquire("inst-1")
	require.NoError(t, err)

	// The stale release must not free the new holder's token.
	release()
	_, err = leases.acquire("inst-1")
	require.Error(t, err)

	reacquired()
}
