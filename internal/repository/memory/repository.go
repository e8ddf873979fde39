package memory

import (
	"context"
	"sort"
	"sync"

	"github.com/Shubhojit-Official/Mailto/internal/model"
	"github.com/Shubhojit-Official/Mailto/internal/repository"
)

// Records are copied on the way in and out so callers never share state
// with the store.

type InMemoryUserRepository struct {
	users map[string]model.User
	mutex sync.RWMutex
}

func NewInMemoryUserRepository() *InMemoryUserRepository {
	return &InMemoryUserRepository{
		users: make(map[string]model.User),
	}
}

func (r *InMemoryUserRepository) Create(ctx context.Context, user *model.User) error {
	r.mutex.Lock()
	defer r.mutex.Unlock()

	r.users[user.ID] = *user
	return nil
}

func (r *InMemoryUserRepository) FindByID(ctx context.Context, id string) (*model.User, error) {
	r.mutex.RLock()
	defer r.mutex.RUnlock()

	user, exists := r.users[id]
	if !exists {
		return nil, repository.ErrNotFound
	}
	return &user, nil
}

func (r *InMemoryUserRepository) FindByGoogleID(ctx context.Context, googleID string) (*model.User, error) {
	r.mutex.RLock()
	defer r.mutex.RUnlock()

	for _, user := range r.users {
		if user.GoogleID == googleID {
			u := user
			return &u, nil
		}
	}
	return nil, repository.ErrNotFound
}

func (r *InMemoryUserRepository) Update(ctx context.Context, user *model.User) error {
	r.mutex.Lock()
	defer r.mutex.Unlock()

	if _, exists := r.users[user.ID]; !exists {
		return repository.ErrNotFound
	}
	r.users[user.ID] = *user
	return nil
}

type InMemoryWorkspaceRepository struct {
	workspaces map[string]model.Workspace
	mutex      sync.RWMutex
}

func NewInMemoryWorkspaceRepository() *InMemoryWorkspaceRepository {
	return &InMemoryWorkspaceRepository{
		workspaces: make(map[string]model.Workspace),
	}
}

func (r *InMemoryWorkspaceRepository) Create(ctx context.Context, workspace *model.Workspace) error {
	r.mutex.Lock()
	defer r.mutex.Unlock()

	r.workspaces[workspace.ID] = *workspace
	return nil
}

func (r *InMemoryWorkspaceRepository) FindByID(ctx context.Context, id string) (*model.Workspace, error) {
	r.mutex.RLock()
	defer r.mutex.RUnlock()

	ws, exists := r.workspaces[id]
	if !exists {
		return nil, repository.ErrNotFound
	}
	return &ws, nil
}

func (r *InMemoryWorkspaceRepository) FindByOwnerID(ctx context.Context, ownerID string) ([]*model.Workspace, error) {
	r.mutex.RLock()
	defer r.mutex.RUnlock()

	var out []*model.Workspace
	for _, ws := range r.workspaces {
		if ws.OwnerID == ownerID {
			w := ws
			out = append(out, &w)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out, nil
}

func (r *InMemoryWorkspaceRepository) Delete(ctx context.Context, id string) error {
	r.mutex.Lock()
	defer r.mutex.Unlock()

	delete(r.workspaces, id)
	return nil
}

// InMemorySenderContextRepository is keyed by workspace id, which makes the
// one-context-per-workspace rule structural.
type InMemorySenderContextRepository struct {
	contexts map[string]model.SenderContext
	mutex    sync.RWMutex
}

func NewInMemorySenderContextRepository() *InMemorySenderContextRepository {
	return &InMemorySenderContextRepository{
		contexts: make(map[string]model.SenderContext),
	}
}

func (r *InMemorySenderContextRepository) Upsert(ctx context.Context, senderContext *model.SenderContext) (*model.SenderContext, error) {
	r.mutex.Lock()
	defer r.mutex.Unlock()

	stored := *senderContext
	if existing, exists := r.contexts[stored.WorkspaceID]; exists {
		stored.ID = existing.ID
		stored.CreatedAt = existing.CreatedAt
	}
	r.contexts[stored.WorkspaceID] = stored

	out := stored
	return &out, nil
}

func (r *InMemorySenderContextRepository) FindByWorkspaceID(ctx context.Context, workspaceID string) (*model.SenderContext, error) {
	r.mutex.RLock()
	defer r.mutex.RUnlock()

	sc, exists := r.contexts[workspaceID]
	if !exists {
		return nil, repository.ErrNotFound
	}
	return &sc, nil
}

// Count is used by tests to check the uniqueness rule.
func (r *InMemorySenderContextRepository) Count() int {
	r.mutex.RLock()
	defer r.mutex.RUnlock()
	return len(r.contexts)
}

type InMemoryRecipientRepository struct {
	recipients map[string]model.Recipient
	mutex      sync.RWMutex
}

func NewInMemoryRecipientRepository() *InMemoryRecipientRepository {
	return &InMemoryRecipientRepository{
		recipients: make(map[string]model.Recipient),
	}
}

func (r *InMemoryRecipientRepository) Create(ctx context.Context, recipient *model.Recipient) error {
	r.mutex.Lock()
	defer r.mutex.Unlock()

	r.recipients[recipient.ID] = *recipient
	return nil
}

func (r *InMemoryRecipientRepository) FindByID(ctx context.Context, id string) (*model.Recipient, error) {
	r.mutex.RLock()
	defer r.mutex.RUnlock()

	rc, exists := r.recipients[id]
	if !exists {
		return nil, repository.ErrNotFound
	}
	return &rc, nil
}

func (r *InMemoryRecipientRepository) FindByWorkspaceID(ctx context.Context, workspaceID string) ([]*model.Recipient, error) {
	r.mutex.RLock()
	defer r.mutex.RUnlock()

	var out []*model.Recipient
	for _, rc := range r.recipients {
		if rc.WorkspaceID == workspaceID {
			c := rc
			out = append(out, &c)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out, nil
}

func (r *InMemoryRecipientRepository) Delete(ctx context.Context, id string) error {
	r.mutex.Lock()
	defer r.mutex.Unlock()

	delete(r.recipients, id)
	return nil
}

type InMemoryEmailRepository struct {
	emails map[string]model.Email
	mutex  sync.RWMutex
}

func NewInMemoryEmailRepository() *InMemoryEmailRepository {
	return &InMemoryEmailRepository{
		emails: make(map[string]model.Email),
	}
}

func (r *InMemoryEmailRepository) Create(ctx context.Context, email *model.Email) error {
	r.mutex.Lock()
	defer r.mutex.Unlock()

	r.emails[email.ID] = *email
	return nil
}

func (r *InMemoryEmailRepository) FindByID(ctx context.Context, id string) (*model.Email, error) {
	r.mutex.RLock()
	defer r.mutex.RUnlock()

	email, exists := r.emails[id]
	if !exists {
		return nil, repository.ErrNotFound
	}
	return &email, nil
}

func (r *InMemoryEmailRepository) FindByWorkspaceID(ctx context.Context, workspaceID string) ([]*model.Email, error) {
	r.mutex.RLock()
	defer r.mutex.RUnlock()

	var out []*model.Email
	for _, email := range r.emails {
		if email.WorkspaceID == workspaceID {
			e := email
			out = append(out, &e)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out, nil
}

func (r *InMemoryEmailRepository) FindActive(ctx context.Context, workspaceID, recipientID string) (*model.Email, error) {
	r.mutex.RLock()
	defer r.mutex.RUnlock()

	var latest *model.Email
	for _, email := range r.emails {
		if email.WorkspaceID != workspaceID || email.RecipientID != recipientID || !email.Active() {
			continue
		}
		if latest == nil || email.UpdatedAt.After(latest.UpdatedAt) {
			e := email
			latest = &e
		}
	}
	if latest == nil {
		return nil, repository.ErrNotFound
	}
	return latest, nil
}

func (r *InMemoryEmailRepository) Update(ctx context.Context, email *model.Email) error {
	r.mutex.Lock()
	defer r.mutex.Unlock()

	if _, exists := r.emails[email.ID]; !exists {
		return repository.ErrNotFound
	}
	r.emails[email.ID] = *email
	return nil
}
