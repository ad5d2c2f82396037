package events

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSubject(t *testing.T) {
	assert.Equal(t, "portal.student.registered", Subject("portal", StudentRegistered))
	assert.Equal(t, "portal.announcement.created", Subject("portal.", AnnouncementCreated))
	assert.Equal(t, "student.registered", Subject("", StudentRegistered))
}

func TestConnectWithoutURLIsNoop(t *testing.T) {
	pub, err := Connect("  ", "portal", nil)
	require.NoError(t, err)
	assert.IsType(t, Noop{}, pub)
	assert.NoError(t, pub.Publish(context.Background(), StudentRegistered, map[string]string{"uid": "u1"}))
	assert.NoError(t, pub.Close())
}
