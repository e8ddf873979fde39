package service

import (
	"context"
	"errors"
	"html"
	"net/http"
	"strings"
	"time"

	"github.com/Shubhojit-Official/Mailto/internal/apperr"
	"github.com/Shubhojit-Official/Mailto/internal/lock"
	"github.com/Shubhojit-Official/Mailto/internal/logger"
	"github.com/Shubhojit-Official/Mailto/internal/model"
	"github.com/Shubhojit-Official/Mailto/internal/repository"

	"golang.org/x/sync/errgroup"
)

// Events pushed to the owner's open SSE connections.
const (
	EventEmailGenerated = "email_generated"
	EventEmailSent      = "email_sent"
	EventEmailFailed    = "email_failed"
	EventEmailUpdated   = "email_updated"
)

type emailService struct {
	emailRepo     repository.EmailRepository
	recipientRepo repository.RecipientRepository
	contextRepo   repository.SenderContextRepository
	userRepo      repository.UserRepository
	guard         workspaceGuard
	drafts        *DraftGenerator
	transport     MailTransport
	locker        lock.Locker
	notifier      Notifier
	logger        *logger.Logger
}

func NewEmailService(
	emailRepo repository.EmailRepository,
	recipientRepo repository.RecipientRepository,
	contextRepo repository.SenderContextRepository,
	workspaceRepo repository.WorkspaceRepository,
	userRepo repository.UserRepository,
	drafts *DraftGenerator,
	transport MailTransport,
	locker lock.Locker,
	notifier Notifier,
	logger *logger.Logger,
) EmailService {
	if locker == nil {
		locker = lock.NewMemoryLocker()
	}
	return &emailService{
		emailRepo:     emailRepo,
		recipientRepo: recipientRepo,
		contextRepo:   contextRepo,
		userRepo:      userRepo,
		guard:         workspaceGuard{repo: workspaceRepo},
		drafts:        drafts,
		transport:     transport,
		locker:        locker,
		notifier:      notifier,
		logger:        logger,
	}
}

// RecipientLockKey names the lock that serializes every write to one
// recipient's emails: generation, edits, sends and tracking.
func RecipientLockKey(workspaceID, recipientID string) string {
	return lock.Key("recipient", workspaceID, recipientID)
}

func (s *emailService) lockRecipient(ctx context.Context, workspaceID, recipientID string) (func(), error) {
	release, err := s.locker.TryLock(ctx, RecipientLockKey(workspaceID, recipientID))
	if errors.Is(err, lock.ErrHeld) {
		return nil, apperr.StateConflict("another change to this recipient's email is in progress")
	}
	if err != nil {
		return nil, apperr.Internal("failed to acquire recipient lock", err)
	}
	return release, nil
}

// GenerateEmail writes a fresh draft for a recipient. An existing draft or
// failed email of the same recipient is overwritten instead of adding a
// second one, and requests for the same recipient never run in parallel.
func (s *emailService) GenerateEmail(ctx context.Context, userID string, in GenerateEmailInput) (*model.Email, error) {
	if in.RecipientID == "" {
		return nil, apperr.Validation("workspaceId and recipientId are required")
	}
	if _, err := s.guard.authorize(ctx, userID, in.WorkspaceID); err != nil {
		return nil, err
	}

	release, err := s.lockRecipient(ctx, in.WorkspaceID, in.RecipientID)
	if err != nil {
		return nil, err
	}
	defer release()

	var (
		senderContext *model.SenderContext
		recipient     *model.Recipient
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		sc, err := s.contextRepo.FindByWorkspaceID(gctx, in.WorkspaceID)
		if errors.Is(err, repository.ErrNotFound) {
			return apperr.NotFound("sender context")
		}
		if err != nil {
			return apperr.Internal("failed to load sender context", err)
		}
		senderContext = sc
		return nil
	})
	g.Go(func() error {
		rc, err := s.recipientRepo.FindByID(gctx, in.RecipientID)
		if errors.Is(err, repository.ErrNotFound) {
			return apperr.NotFoundOrUnauthorized("recipient")
		}
		if err != nil {
			return apperr.Internal("failed to load recipient", err)
		}
		if rc.WorkspaceID != in.WorkspaceID {
			return apperr.NotFoundOrUnauthorized("recipient")
		}
		recipient = rc
		return nil
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}

	tone := model.NewTone(in.Tone.Personalization, in.Tone.Formality, in.Tone.Persuasiveness)
	draft, err := s.drafts.GenerateDraft(ctx, senderContext.Summary, recipient.ProfileSnapshot, tone)
	if err != nil {
		s.logger.Error("Draft generation failed for recipient", recipient.ID, err)
		return nil, err
	}

	email, err := s.emailRepo.FindActive(ctx, in.WorkspaceID, recipient.ID)
	switch {
	case errors.Is(err, repository.ErrNotFound):
		email = model.NewEmail(in.WorkspaceID, recipient.ID, draft.Subject, draft.Body, tone)
		email.SubjectFallback = draft.SubjectFallback
		if err := s.emailRepo.Create(ctx, email); err != nil {
			return nil, apperr.Internal("failed to save email", err)
		}
	case err != nil:
		return nil, apperr.Internal("failed to load active email", err)
	default:
		email.Revise(draft.Subject, draft.Body, time.Now())
		email.Tone = tone
		email.SubjectFallback = draft.SubjectFallback
		if err := s.emailRepo.Update(ctx, email); err != nil {
			return nil, apperr.Internal("failed to save email", err)
		}
	}

	s.logger.Info("Generated draft", email.ID, "for recipient", recipient.ID)
	s.notify(userID, EventEmailGenerated, email)
	return email, nil
}

// SaveDraft stores user edits. Editing a sent email turns it back into a
// draft.
func (s *emailService) SaveDraft(ctx context.Context, userID string, in SaveDraftInput) (*model.Email, error) {
	if in.Subject != nil {
		if err := validateSubject(*in.Subject); err != nil {
			return nil, err
		}
	}
	if in.Body != nil && strings.TrimSpace(*in.Body) == "" {
		return nil, apperr.Validation("body is required")
	}

	if in.EmailID == "" {
		return s.createDraft(ctx, userID, in)
	}

	email, err := s.loadOwnedEmail(ctx, userID, in.EmailID)
	if err != nil {
		return nil, err
	}
	release, err := s.lockRecipient(ctx, email.WorkspaceID, email.RecipientID)
	if err != nil {
		return nil, err
	}
	defer release()
	if email, err = s.reloadEmail(ctx, email.ID); err != nil {
		return nil, err
	}

	if !email.Active() {
		// Reopening a delivered email must not leave the recipient with two drafts.
		active, err := s.emailRepo.FindActive(ctx, email.WorkspaceID, email.RecipientID)
		switch {
		case errors.Is(err, repository.ErrNotFound):
		case err != nil:
			return nil, apperr.Internal("failed to load active email", err)
		case active.ID != email.ID:
			return nil, apperr.StateConflict("recipient already has an open draft")
		}
	}
	subject, body := email.Subject, email.Body
	if in.Subject != nil {
		subject = strings.TrimSpace(*in.Subject)
	}
	if in.Body != nil {
		body = *in.Body
	}
	email.Revise(subject, body, time.Now())
	email.SubjectFallback = false

	if err := s.emailRepo.Update(ctx, email); err != nil {
		return nil, apperr.Internal("failed to save email", err)
	}
	s.notify(userID, EventEmailUpdated, email)
	return email, nil
}

// createDraft overwrites the recipient's active email when there is one.
func (s *emailService) createDraft(ctx context.Context, userID string, in SaveDraftInput) (*model.Email, error) {
	if in.Subject == nil || in.Body == nil {
		return nil, apperr.Validation("subject and body are required")
	}
	if strings.TrimSpace(*in.Subject) == "" {
		return nil, apperr.Validation("subject is required")
	}
	if _, err := s.guard.authorize(ctx, userID, in.WorkspaceID); err != nil {
		return nil, err
	}
	recipient, err := loadOwnedRecipient(ctx, s.recipientRepo, s.guard, userID, in.RecipientID)
	if err != nil {
		return nil, err
	}
	if recipient.WorkspaceID != in.WorkspaceID {
		return nil, apperr.NotFoundOrUnauthorized("recipient")
	}

	release, err := s.lockRecipient(ctx, in.WorkspaceID, recipient.ID)
	if err != nil {
		return nil, err
	}
	defer release()

	subject := strings.TrimSpace(*in.Subject)
	email, err := s.emailRepo.FindActive(ctx, in.WorkspaceID, recipient.ID)
	switch {
	case errors.Is(err, repository.ErrNotFound):
		email = model.NewEmail(in.WorkspaceID, recipient.ID, subject, *in.Body, model.Tone{})
		err = s.emailRepo.Create(ctx, email)
	case err != nil:
		return nil, apperr.Internal("failed to load active email", err)
	default:
		email.Revise(subject, *in.Body, time.Now())
		email.SubjectFallback = false
		err = s.emailRepo.Update(ctx, email)
	}
	if err != nil {
		return nil, apperr.Internal("failed to save email", err)
	}
	s.notify(userID, EventEmailUpdated, email)
	return email, nil
}

func validateSubject(subject string) error {
	if len([]rune(strings.TrimSpace(subject))) > model.SubjectMaxLen {
		return apperr.Validationf("subject must be at most %d characters", model.SubjectMaxLen)
	}
	return nil
}

// SendEmail dispatches a draft through the sender's mailbox. Only drafts
// are sent, so repeating the call never reaches the transport twice. The
// recipient lock is held until the outcome is stored, so edits and
// regenerations made meanwhile are refused instead of overwritten.
func (s *emailService) SendEmail(ctx context.Context, userID, emailID string) (*model.Email, error) {
	email, err := s.loadOwnedEmail(ctx, userID, emailID)
	if err != nil {
		return nil, err
	}
	release, err := s.lockRecipient(ctx, email.WorkspaceID, email.RecipientID)
	if err != nil {
		return nil, err
	}
	defer release()
	if email, err = s.reloadEmail(ctx, emailID); err != nil {
		return nil, err
	}

	if err := email.CheckSendable(); err != nil {
		return nil, apperr.StateConflict(err.Error())
	}

	recipient, err := s.recipientRepo.FindByID(ctx, email.RecipientID)
	if errors.Is(err, repository.ErrNotFound) {
		return nil, apperr.NotFoundOrUnauthorized("recipient")
	}
	if err != nil {
		return nil, apperr.Internal("failed to load recipient", err)
	}
	if !recipient.HasAddress() {
		return nil, apperr.StateConflict("recipient has no email address").WithStatus(http.StatusBadRequest)
	}

	sender, err := s.userRepo.FindByID(ctx, userID)
	if err != nil {
		return nil, apperr.Internal("failed to load sender", err)
	}
	if !sender.CanSendMail() {
		return nil, apperr.StateConflict("mailbox is not connected, sign in again").WithStatus(http.StatusBadRequest)
	}

	msg := OutboundMessage{
		To:       recipient.Email,
		Subject:  email.Subject,
		TextBody: email.Body,
		HTMLBody: BodyToHTML(email.Body),
	}
	if sendErr := s.transport.Send(ctx, sender, msg); sendErr != nil {
		s.logger.Error("Failed to send email", email.ID, sendErr)
		if err := email.MarkFailed(time.Now()); err == nil {
			if err := s.emailRepo.Update(ctx, email); err != nil {
				s.logger.Error("Failed to record send failure for", email.ID, err)
			}
		}
		s.notify(userID, EventEmailFailed, email)
		return nil, apperr.UpstreamFailure("failed to send email", sendErr)
	}

	if err := email.MarkSent(time.Now()); err != nil {
		return nil, apperr.StateConflict(err.Error())
	}
	if err := s.emailRepo.Update(ctx, email); err != nil {
		// The message is out; the caller must not retry.
		s.logger.Error("Email", email.ID, "was sent but could not be marked as sent:", err)
		return nil, apperr.Internal("email sent but status update failed", err)
	}
	s.logger.Info("Sent email", email.ID, "to recipient", recipient.ID)
	s.notify(userID, EventEmailSent, email)
	return email, nil
}

// BodyToHTML escapes a plain-text body and keeps its line breaks.
func BodyToHTML(body string) string {
	escaped := html.EscapeString(strings.ReplaceAll(body, "\r\n", "\n"))
	return strings.ReplaceAll(escaped, "\n", "<br>")
}

func (s *emailService) MarkOpened(ctx context.Context, userID, emailID string) (*model.Email, error) {
	return s.track(ctx, userID, emailID, (*model.Email).MarkOpened)
}

func (s *emailService) MarkReplied(ctx context.Context, userID, emailID string) (*model.Email, error) {
	return s.track(ctx, userID, emailID, (*model.Email).MarkReplied)
}

func (s *emailService) track(ctx context.Context, userID, emailID string, apply func(*model.Email, time.Time) (bool, error)) (*model.Email, error) {
	email, err := s.loadOwnedEmail(ctx, userID, emailID)
	if err != nil {
		return nil, err
	}
	release, err := s.lockRecipient(ctx, email.WorkspaceID, email.RecipientID)
	if err != nil {
		return nil, err
	}
	defer release()
	if email, err = s.reloadEmail(ctx, emailID); err != nil {
		return nil, err
	}

	changed, err := apply(email, time.Now())
	if err != nil {
		return nil, apperr.StateConflict(err.Error())
	}
	if !changed {
		return email, nil
	}
	if err := s.emailRepo.Update(ctx, email); err != nil {
		return nil, apperr.Internal("failed to update email status", err)
	}
	s.notify(userID, EventEmailUpdated, email)
	return email, nil
}

func (s *emailService) GetEmail(ctx context.Context, userID, emailID string) (*model.Email, error) {
	return s.loadOwnedEmail(ctx, userID, emailID)
}

func (s *emailService) ListEmails(ctx context.Context, userID, workspaceID string) ([]*model.Email, error) {
	if _, err := s.guard.authorize(ctx, userID, workspaceID); err != nil {
		return nil, err
	}
	emails, err := s.emailRepo.FindByWorkspaceID(ctx, workspaceID)
	if err != nil {
		return nil, apperr.Internal("failed to list emails", err)
	}
	return emails, nil
}

func (s *emailService) loadOwnedEmail(ctx context.Context, userID, emailID string) (*model.Email, error) {
	if emailID == "" {
		return nil, apperr.Validation("email id is required")
	}
	email, err := s.emailRepo.FindByID(ctx, emailID)
	if errors.Is(err, repository.ErrNotFound) {
		return nil, apperr.NotFoundOrUnauthorized("email")
	}
	if err != nil {
		return nil, apperr.Internal("failed to load email", err)
	}
	if _, err := s.guard.authorize(ctx, userID, email.WorkspaceID); err != nil {
		if apperr.IsKind(err, apperr.KindAuthorization) {
			return nil, apperr.NotFoundOrUnauthorized("email")
		}
		return nil, err
	}
	return email, nil
}

// reloadEmail re-reads an email already authorized by loadOwnedEmail, once
// its recipient lock is held.
func (s *emailService) reloadEmail(ctx context.Context, emailID string) (*model.Email, error) {
	email, err := s.emailRepo.FindByID(ctx, emailID)
	if errors.Is(err, repository.ErrNotFound) {
		return nil, apperr.NotFoundOrUnauthorized("email")
	}
	if err != nil {
		return nil, apperr.Internal("failed to load email", err)
	}
	return email, nil
}

func (s *emailService) notify(userID, eventType string, email *model.Email) {
	if s.notifier == nil {
		return
	}
	s.notifier.BroadcastToUser(userID, eventType, email)
}
