package websocket

import "fmt"

// RoomName derives the canonical channel name for an unordered user pair.
// Symmetric: RoomName(a, b) == RoomName(b, a), so both participants resolve
// to the same room regardless of who initiates.
func RoomName(userA, userB uint) string {
	if userA > userB {
		userA, userB = userB, userA
	}
	return fmt.Sprintf("chat_%d_%d", userA, userB)
}
