package worker

import (
	"testing"

	"barterhub/internal/models"

	"github.com/stretchr/testify/assert"
)

func TestRoomBetween(t *testing.T) {
	room := &models.ChatRoom{User1ID: 10, User2ID: 20}

	assert.True(t, roomBetween(room, 10, 20))
	assert.True(t, roomBetween(room, 20, 10))

	// a room a third party opened on the same listing does not match
	assert.False(t, roomBetween(&models.ChatRoom{User1ID: 10, User2ID: 30}, 10, 20))
	assert.False(t, roomBetween(room, 10, 30))
	assert.False(t, roomBetween(room, 30, 40))
}
