package bot

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"moderation/internal/models"
	"moderation/internal/moderation"
)

const timeLayout = "2006-01-02 15:04"

const (
	textBanned           = "🚫 You are banned and cannot use this bot. Contact an administrator if you have questions."
	textApprovedWelcome  = "✅ Access granted. You can use every section.\n\n/status - check your status\n/my - your submissions"
	textPendingWelcome   = "📝 Your account is pending.\n\n1) Press \"Create submission\", choose a section and upload your media.\n2) Your submission stays hidden from other users and goes to the administrators.\n3) An administrator approves it, rejects it or asks for fixes.\n\n⚠️ Sections stay closed until your submission is approved."
	textChooseSection    = "Choose a section for your submission (only one):"
	textAccessDenied     = "Access denied."
	textUnknownCommand   = "Unknown command. Use /start to see available commands."
	textGenericError     = "An error occurred while processing your request. Please try again."
	textNoActive         = "You have no active submission."
	textNoSubmissions    = "You have no submissions yet."
	textNoPending        = "No submissions are waiting for moderation."
	textResetDone        = "🔄 Your submission was reset. You can create a new one."
	textAdminPanel       = "Admin panel:"
	textHistoryUsage     = "Usage: /history <submission id>"
	textHistoryEmpty     = "No decisions recorded for this submission."
	textSendMediaFirst   = "ℹ️ First press \"Add normal\" or \"Add intimate\" in the submission menu."
	textStorageFailure   = "⚠️ Your request could not be saved. Please try again later."
	textAlreadyApproved  = "You already have full access."
	textNotEditable      = "This submission has already been processed."
	textAwaitingFixes    = "This submission is waiting for the user's fixes."
	textNotOwner         = "This submission is not available."
	textUnsupportedMedia = "Unsupported file. Send a photo, a video or a GIF."
)

func sectionTitle(s models.Section) string {
	switch s {
	case models.SectionCouples:
		return "Couples"
	case models.SectionBoudoir:
		return "Boudoir"
	case models.SectionGarage:
		return "Garage"
	}
	return string(s)
}

func categoryTitle(c models.Category) string {
	switch c {
	case models.CategoryNormal:
		return "normal"
	case models.CategoryIntimate:
		return "intimate"
	}
	return string(c)
}

func usernameOf(p models.Profile) string {
	if p.Username == "" {
		return "-"
	}
	return "@" + p.Username
}

// errorText turns a moderation error into a message naming the unmet precondition
func errorText(err error) string {
	var limited *moderation.RateLimitedError
	var incomplete *moderation.IncompleteError

	switch {
	case errors.As(err, &limited):
		return fmt.Sprintf("⏳ You cannot create a new submission yet. Please wait %d min.", moderation.WaitMinutes(limited.RetryAfter))
	case errors.As(err, &incomplete):
		missing := make([]string, 0, len(incomplete.Missing))
		for _, c := range incomplete.Missing {
			missing = append(missing, categoryTitle(c))
		}
		return fmt.Sprintf("You need at least one file in each category (normal and intimate). Missing: %s.", strings.Join(missing, ", "))
	case errors.Is(err, moderation.ErrStorageFailure):
		return textStorageFailure
	case errors.Is(err, moderation.ErrAccountBanned):
		return textBanned
	case errors.Is(err, moderation.ErrAccountApproved):
		return textAlreadyApproved
	case errors.Is(err, moderation.ErrNotEditable):
		return textNotEditable
	case errors.Is(err, moderation.ErrAwaitingFixes):
		return textAwaitingFixes
	case errors.Is(err, moderation.ErrNotOwner):
		return textNotOwner
	case errors.Is(err, moderation.ErrInvalidState):
		return "This action is not available in your current status."
	case errors.Is(err, moderation.ErrNotAwaitingMedia):
		return textSendMediaFirst
	case errors.Is(err, moderation.ErrInvalidCategory):
		return "Unknown media category."
	case errors.Is(err, moderation.ErrInvalidSection):
		return "Unknown section."
	case errors.Is(err, moderation.ErrInvalidVerdict):
		return "Unknown moderation action."
	case errors.Is(err, moderation.ErrUnauthorized):
		return textAccessDenied
	case errors.Is(err, moderation.ErrNotFound):
		return "Not found. Send /start to begin."
	}
	return textGenericError
}

func welcomeText(status models.AccountStatus) string {
	switch status {
	case models.StatusBanned:
		return textBanned
	case models.StatusApproved:
		return textApprovedWelcome
	}
	return textPendingWelcome
}

func createdText(sub models.Submission) string {
	return fmt.Sprintf("📝 Submission #%d created. Section: %s.\n\n"+
		"Now upload your media:\n"+
		"• Normal photos - 1 or more\n"+
		"• Intimate photos - 1 or more\n\n"+
		"Any order. Press the buttons below to pick a category, then send the files.\n"+
		"When everything is ready press \"Done (send for moderation)\".",
		sub.ID, sectionTitle(sub.Section))
}

func countsLine(counts models.MediaCounts) string {
	return fmt.Sprintf("Normal: %d, Intimate: %d", counts[models.CategoryNormal], counts[models.CategoryIntimate])
}

func statusText(view moderation.SubmissionView, hasActive bool) string {
	var text strings.Builder
	text.WriteString(fmt.Sprintf("👤 ID: %d\nStatus: %s\n", view.User.ID, view.User.Status))
	if !hasActive {
		text.WriteString("Active submission: none")
		return text.String()
	}
	text.WriteString(fmt.Sprintf("Active submission: #%d / section: %s / %s\n%s",
		view.Submission.ID,
		sectionTitle(view.Submission.Section),
		view.Submission.Decision,
		countsLine(view.Counts)))
	return text.String()
}

func activeExistsText(sub models.Submission) string {
	return fmt.Sprintf("You already have an active submission #%d (section: %s). Finish it or reset it first.", sub.ID, sectionTitle(sub.Section))
}

func intakeText(category models.Category) string {
	return fmt.Sprintf("Send the file(s) for %s. Photos, videos and GIFs are supported. You can send several messages, one file each.", categoryTitle(category))
}

func mediaSavedText(category models.Category, counts models.MediaCounts) string {
	return fmt.Sprintf("File saved (%s). %s.\nPick another category with the buttons, or press \"Done\" when ready.",
		categoryTitle(category), countsLine(counts))
}

func submittedText(sub models.Submission) string {
	return fmt.Sprintf("✅ Submission #%d was sent for moderation. Please wait for an administrator's decision.", sub.ID)
}

func mySubmissionsText(subs []models.Submission) string {
	var text strings.Builder
	text.WriteString("Your submissions:\n\n")
	for _, s := range subs {
		text.WriteString(fmt.Sprintf("#%d - %s - %s - %s\n", s.ID, sectionTitle(s.Section), s.Decision, s.CreatedAt.Format(timeLayout)))
	}
	return text.String()
}

func pendingLine(sub models.Submission, user models.User) string {
	return fmt.Sprintf("#%d - %d (%s) - %s - %s\n", sub.ID, sub.UserID, usernameOf(user.Profile), sectionTitle(sub.Section), submittedAt(sub).Format(timeLayout))
}

func statsText(stats models.Stats) string {
	return fmt.Sprintf("📊 Stats\n\nUsers: %d\nApproved users: %d\nBanned users: %d\nPending submissions: %d\nApproved submissions: %d",
		stats.TotalUsers, stats.ApprovedUsers, stats.BannedUsers, stats.PendingSubmissions, stats.ApprovedSubmissions)
}

func historyText(submissionID int64, records []models.DecisionRecord) string {
	var text strings.Builder
	text.WriteString(fmt.Sprintf("🗂 Decisions for submission #%d:\n\n", submissionID))
	for i, r := range records {
		text.WriteString(fmt.Sprintf("%d. %s - %s by %d (%s → %s)\n",
			i+1, r.DecidedAt.Format(timeLayout), r.Verdict, r.ModeratorID, r.PreviousStatus, r.NewStatus))
	}
	return text.String()
}

func submissionSummary(view moderation.SubmissionView) string {
	return fmt.Sprintf("📋 Submission #%d\nUser: %d (%s) %s\nSection: %s\nDecision: %s\n\nMedia:\n%s",
		view.Submission.ID,
		view.Submission.UserID,
		view.User.Profile.DisplayName(),
		usernameOf(view.User.Profile),
		sectionTitle(view.Submission.Section),
		view.Submission.Decision,
		countsLine(view.Counts))
}

// outcomeText is what the moderator's message is edited to after a decision
func outcomeText(out moderation.Outcome, moderatorName string) string {
	switch out.Verdict {
	case models.VerdictApprove:
		return fmt.Sprintf("✅ Submission #%d approved by %s", out.Submission.ID, moderatorName)
	case models.VerdictReject:
		if out.NewStatus == models.StatusBanned {
			return fmt.Sprintf("❌ Submission #%d rejected by %s. User banned.", out.Submission.ID, moderatorName)
		}
		return fmt.Sprintf("❌ Submission #%d rejected by %s.", out.Submission.ID, moderatorName)
	}
	return fmt.Sprintf("✏️ Submission #%d marked as needs fix by %s.", out.Submission.ID, moderatorName)
}

func formatTime(t time.Time) string {
	return t.Format("2006-01-02 15:04:05")
}
