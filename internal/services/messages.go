package services

import (
	"fmt"

	"eventease/internal/domain"
)

// composeMessage returns the push title and body for a notification group.
func composeMessage(group domain.NotificationGroup, eventTitle string) (title, message string) {
	switch group {
	case domain.GroupSelection:
		return "You've been selected!",
			fmt.Sprintf("You were drawn from the waitlist for %s. Open your invitations to accept or decline your spot.", eventTitle)
	case domain.GroupReplacement:
		return "A spot opened up for you",
			fmt.Sprintf("A place in %s became available and you were drawn as a replacement. Please respond before your invitation expires.", eventTitle)
	case domain.GroupDeadline:
		return "Invitation expired",
			fmt.Sprintf("The response deadline for %s has passed, so your spot was released.", eventTitle)
	case domain.GroupSorry:
		return "Selection results",
			fmt.Sprintf("Thank you for joining the waitlist for %s. Unfortunately you were not selected this time.", eventTitle)
	default:
		return eventTitle, ""
	}
}
