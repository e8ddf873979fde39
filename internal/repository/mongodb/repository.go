// Package mongodb stores the outreach records as MongoDB documents.
package mongodb

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/Shubhojit-Official/Mailto/internal/model"
	"github.com/Shubhojit-Official/Mailto/internal/repository"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

const (
	collectionUsers          = "users"
	collectionWorkspaces     = "workspaces"
	collectionSenderContexts = "sender_contexts"
	collectionRecipients     = "recipients"
	collectionEmails         = "emails"
)

// NewClient creates a new MongoDB client.
func NewClient(ctx context.Context, url string) (*mongo.Client, error) {
	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	clientOpts := options.Client().
		ApplyURI(url).
		SetMaxPoolSize(50).
		SetMinPoolSize(5).
		SetMaxConnIdleTime(30 * time.Second)

	client, err := mongo.Connect(ctx, clientOpts)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to MongoDB: %w", err)
	}

	if err := client.Ping(ctx, nil); err != nil {
		return nil, fmt.Errorf("failed to ping MongoDB: %w", err)
	}

	return client, nil
}

// EnsureIndexes creates the unique keys the repositories depend on.
func EnsureIndexes(ctx context.Context, db *mongo.Database) error {
	indexes := map[string][]mongo.IndexModel{
		collectionUsers: {
			{Keys: bson.D{{Key: "id", Value: 1}}, Options: options.Index().SetUnique(true)},
			{Keys: bson.D{{Key: "google_id", Value: 1}}, Options: options.Index().SetUnique(true)},
		},
		collectionWorkspaces: {
			{Keys: bson.D{{Key: "id", Value: 1}}, Options: options.Index().SetUnique(true)},
			{Keys: bson.D{{Key: "owner_id", Value: 1}, {Key: "created_at", Value: -1}}},
		},
		collectionSenderContexts: {
			{Keys: bson.D{{Key: "workspace_id", Value: 1}}, Options: options.Index().SetUnique(true)},
		},
		collectionRecipients: {
			{Keys: bson.D{{Key: "id", Value: 1}}, Options: options.Index().SetUnique(true)},
			{Keys: bson.D{{Key: "workspace_id", Value: 1}, {Key: "created_at", Value: -1}}},
		},
		collectionEmails: {
			{Keys: bson.D{{Key: "id", Value: 1}}, Options: options.Index().SetUnique(true)},
			{Keys: bson.D{{Key: "workspace_id", Value: 1}, {Key: "created_at", Value: -1}}},
			{Keys: bson.D{{Key: "workspace_id", Value: 1}, {Key: "recipient_id", Value: 1}, {Key: "status", Value: 1}}},
		},
	}

	for name, models := range indexes {
		if _, err := db.Collection(name).Indexes().CreateMany(ctx, models); err != nil {
			return fmt.Errorf("failed to create indexes on %s: %w", name, err)
		}
	}
	return nil
}

func notFound(err error) error {
	if errors.Is(err, mongo.ErrNoDocuments) {
		return repository.ErrNotFound
	}
	return err
}

func decodeAll[T any, M any](ctx context.Context, cur *mongo.Cursor, convert func(*T) M) ([]M, error) {
	defer cur.Close(ctx)

	var out []M
	for cur.Next(ctx) {
		var doc T
		if err := cur.Decode(&doc); err != nil {
			return nil, err
		}
		out = append(out, convert(&doc))
	}
	return out, cur.Err()
}

// =============================================================================
// Users
// =============================================================================

type userDocument struct {
	ID           string    `bson:"id"`
	GoogleID     string    `bson:"google_id"`
	Email        string    `bson:"email"`
	Name         string    `bson:"name"`
	AccessToken  string    `bson:"access_token"`
	RefreshToken string    `bson:"refresh_token"`
	TokenExpiry  time.Time `bson:"token_expiry"`
	CreatedAt    time.Time `bson:"created_at"`
	UpdatedAt    time.Time `bson:"updated_at"`
}

func userToDocument(u *model.User) *userDocument {
	d := userDocument(*u)
	return &d
}

func (d *userDocument) toModel() *model.User {
	u := model.User(*d)
	return &u
}

type UserRepository struct {
	collection *mongo.Collection
}

func NewUserRepository(db *mongo.Database) *UserRepository {
	return &UserRepository{collection: db.Collection(collectionUsers)}
}

func (r *UserRepository) Create(ctx context.Context, user *model.User) error {
	_, err := r.collection.ReplaceOne(ctx, bson.M{"google_id": user.GoogleID},
		userToDocument(user), options.Replace().SetUpsert(true))
	if err != nil {
		return fmt.Errorf("failed to save user: %w", err)
	}
	return nil
}

func (r *UserRepository) FindByID(ctx context.Context, id string) (*model.User, error) {
	var doc userDocument
	if err := r.collection.FindOne(ctx, bson.M{"id": id}).Decode(&doc); err != nil {
		return nil, notFound(err)
	}
	return doc.toModel(), nil
}

func (r *UserRepository) FindByGoogleID(ctx context.Context, googleID string) (*model.User, error) {
	var doc userDocument
	if err := r.collection.FindOne(ctx, bson.M{"google_id": googleID}).Decode(&doc); err != nil {
		return nil, notFound(err)
	}
	return doc.toModel(), nil
}

func (r *UserRepository) Update(ctx context.Context, user *model.User) error {
	res, err := r.collection.ReplaceOne(ctx, bson.M{"id": user.ID}, userToDocument(user))
	if err != nil {
		return fmt.Errorf("failed to update user: %w", err)
	}
	if res.MatchedCount == 0 {
		return repository.ErrNotFound
	}
	return nil
}

// =============================================================================
// Workspaces
// =============================================================================

type workspaceDocument struct {
	ID        string    `bson:"id"`
	OwnerID   string    `bson:"owner_id"`
	Name      string    `bson:"name"`
	Color     string    `bson:"color"`
	CreatedAt time.Time `bson:"created_at"`
	UpdatedAt time.Time `bson:"updated_at"`
}

func (d *workspaceDocument) toModel() *model.Workspace {
	return &model.Workspace{
		ID:        d.ID,
		OwnerID:   d.OwnerID,
		Name:      d.Name,
		Color:     model.Color(d.Color),
		CreatedAt: d.CreatedAt,
		UpdatedAt: d.UpdatedAt,
	}
}

type WorkspaceRepository struct {
	collection *mongo.Collection
}

func NewWorkspaceRepository(db *mongo.Database) *WorkspaceRepository {
	return &WorkspaceRepository{collection: db.Collection(collectionWorkspaces)}
}

func (r *WorkspaceRepository) Create(ctx context.Context, ws *model.Workspace) error {
	_, err := r.collection.InsertOne(ctx, &workspaceDocument{
		ID:        ws.ID,
		OwnerID:   ws.OwnerID,
		Name:      ws.Name,
		Color:     string(ws.Color),
		CreatedAt: ws.CreatedAt,
		UpdatedAt: ws.UpdatedAt,
	})
	if err != nil {
		return fmt.Errorf("failed to save workspace: %w", err)
	}
	return nil
}

func (r *WorkspaceRepository) FindByID(ctx context.Context, id string) (*model.Workspace, error) {
	var doc workspaceDocument
	if err := r.collection.FindOne(ctx, bson.M{"id": id}).Decode(&doc); err != nil {
		return nil, notFound(err)
	}
	return doc.toModel(), nil
}

func (r *WorkspaceRepository) FindByOwnerID(ctx context.Context, ownerID string) ([]*model.Workspace, error) {
	cur, err := r.collection.Find(ctx, bson.M{"owner_id": ownerID},
		options.Find().SetSort(bson.D{{Key: "created_at", Value: -1}}))
	if err != nil {
		return nil, fmt.Errorf("failed to list workspaces: %w", err)
	}
	return decodeAll(ctx, cur, (*workspaceDocument).toModel)
}

func (r *WorkspaceRepository) Delete(ctx context.Context, id string) error {
	if _, err := r.collection.DeleteOne(ctx, bson.M{"id": id}); err != nil {
		return fmt.Errorf("failed to delete workspace: %w", err)
	}
	return nil
}

// =============================================================================
// Sender contexts
// =============================================================================

type senderContextDocument struct {
	ID              string            `bson:"id"`
	WorkspaceID     string            `bson:"workspace_id"`
	Intent          string            `bson:"intent"`
	Data            map[string]string `bson:"data"`
	Summary         string            `bson:"summary"`
	AdditionalNotes string            `bson:"additional_notes,omitempty"`
	CreatedAt       time.Time         `bson:"created_at"`
	UpdatedAt       time.Time         `bson:"updated_at"`
}

func factsToMap(fields model.IntentFields) map[string]string {
	data := make(map[string]string)
	for _, f := range fields.Facts() {
		data[f.Name] = f.Value
	}
	return data
}

func (d *senderContextDocument) toModel() (*model.SenderContext, error) {
	fields, err := model.NewIntentFields(model.Intent(d.Intent), d.Data)
	if err != nil {
		return nil, fmt.Errorf("failed to decode sender context %s: %w", d.ID, err)
	}
	return &model.SenderContext{
		ID:              d.ID,
		WorkspaceID:     d.WorkspaceID,
		Fields:          fields,
		Summary:         d.Summary,
		AdditionalNotes: d.AdditionalNotes,
		CreatedAt:       d.CreatedAt,
		UpdatedAt:       d.UpdatedAt,
	}, nil
}

type SenderContextRepository struct {
	collection *mongo.Collection
}

func NewSenderContextRepository(db *mongo.Database) *SenderContextRepository {
	return &SenderContextRepository{collection: db.Collection(collectionSenderContexts)}
}

// Upsert is a single FindOneAndUpdate against the unique workspace_id index.
// Two racing inserts can hit a duplicate key; the loser retries as an update.
func (r *SenderContextRepository) Upsert(ctx context.Context, sc *model.SenderContext) (*model.SenderContext, error) {
	filter := bson.M{"workspace_id": sc.WorkspaceID}
	update := bson.M{
		"$set": bson.M{
			"intent":           string(sc.Intent()),
			"data":             factsToMap(sc.Fields),
			"summary":          sc.Summary,
			"additional_notes": sc.AdditionalNotes,
			"updated_at":       sc.UpdatedAt,
		},
		"$setOnInsert": bson.M{
			"id":         sc.ID,
			"created_at": sc.CreatedAt,
		},
	}
	opts := options.FindOneAndUpdate().SetUpsert(true).SetReturnDocument(options.After)

	var doc senderContextDocument
	err := r.collection.FindOneAndUpdate(ctx, filter, update, opts).Decode(&doc)
	if mongo.IsDuplicateKeyError(err) {
		err = r.collection.FindOneAndUpdate(ctx, filter, update, opts).Decode(&doc)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to upsert sender context: %w", err)
	}
	return doc.toModel()
}

func (r *SenderContextRepository) FindByWorkspaceID(ctx context.Context, workspaceID string) (*model.SenderContext, error) {
	var doc senderContextDocument
	if err := r.collection.FindOne(ctx, bson.M{"workspace_id": workspaceID}).Decode(&doc); err != nil {
		return nil, notFound(err)
	}
	return doc.toModel()
}

// =============================================================================
// Recipients
// =============================================================================

type recipientDocument struct {
	ID              string    `bson:"id"`
	WorkspaceID     string    `bson:"workspace_id"`
	Handle          string    `bson:"handle"`
	Email           string    `bson:"email,omitempty"`
	Name            string    `bson:"name,omitempty"`
	ProfileSnapshot *string   `bson:"profile_snapshot"`
	CreatedAt       time.Time `bson:"created_at"`
	UpdatedAt       time.Time `bson:"updated_at"`
}

func (d *recipientDocument) toModel() *model.Recipient {
	rc := model.Recipient(*d)
	return &rc
}

type RecipientRepository struct {
	collection *mongo.Collection
}

func NewRecipientRepository(db *mongo.Database) *RecipientRepository {
	return &RecipientRepository{collection: db.Collection(collectionRecipients)}
}

func (r *RecipientRepository) Create(ctx context.Context, rc *model.Recipient) error {
	doc := recipientDocument(*rc)
	if _, err := r.collection.InsertOne(ctx, &doc); err != nil {
		return fmt.Errorf("failed to save recipient: %w", err)
	}
	return nil
}

func (r *RecipientRepository) FindByID(ctx context.Context, id string) (*model.Recipient, error) {
	var doc recipientDocument
	if err := r.collection.FindOne(ctx, bson.M{"id": id}).Decode(&doc); err != nil {
		return nil, notFound(err)
	}
	return doc.toModel(), nil
}

func (r *RecipientRepository) FindByWorkspaceID(ctx context.Context, workspaceID string) ([]*model.Recipient, error) {
	cur, err := r.collection.Find(ctx, bson.M{"workspace_id": workspaceID},
		options.Find().SetSort(bson.D{{Key: "created_at", Value: -1}}))
	if err != nil {
		return nil, fmt.Errorf("failed to list recipients: %w", err)
	}
	return decodeAll(ctx, cur, (*recipientDocument).toModel)
}

func (r *RecipientRepository) Delete(ctx context.Context, id string) error {
	if _, err := r.collection.DeleteOne(ctx, bson.M{"id": id}); err != nil {
		return fmt.Errorf("failed to delete recipient: %w", err)
	}
	return nil
}

// =============================================================================
// Emails
// =============================================================================

type emailDocument struct {
	ID              string     `bson:"id"`
	WorkspaceID     string     `bson:"workspace_id"`
	RecipientID     string     `bson:"recipient_id"`
	Subject         string     `bson:"subject"`
	Body            string     `bson:"body"`
	Status          string     `bson:"status"`
	Personalization int        `bson:"personalization"`
	Formality       int        `bson:"formality"`
	Persuasiveness  int        `bson:"persuasiveness"`
	SubjectFallback bool       `bson:"subject_fallback"`
	CreatedAt       time.Time  `bson:"created_at"`
	UpdatedAt       time.Time  `bson:"updated_at"`
	SentAt          *time.Time `bson:"sent_at"`
	OpenedAt        *time.Time `bson:"opened_at"`
	RepliedAt       *time.Time `bson:"replied_at"`
}

func emailToDocument(e *model.Email) *emailDocument {
	return &emailDocument{
		ID:              e.ID,
		WorkspaceID:     e.WorkspaceID,
		RecipientID:     e.RecipientID,
		Subject:         e.Subject,
		Body:            e.Body,
		Status:          string(e.Status),
		Personalization: e.Tone.Personalization,
		Formality:       e.Tone.Formality,
		Persuasiveness:  e.Tone.Persuasiveness,
		SubjectFallback: e.SubjectFallback,
		CreatedAt:       e.CreatedAt,
		UpdatedAt:       e.UpdatedAt,
		SentAt:          e.SentAt,
		OpenedAt:        e.OpenedAt,
		RepliedAt:       e.RepliedAt,
	}
}

func (d *emailDocument) toModel() *model.Email {
	return &model.Email{
		ID:              d.ID,
		WorkspaceID:     d.WorkspaceID,
		RecipientID:     d.RecipientID,
		Subject:         d.Subject,
		Body:            d.Body,
		Status:          model.EmailStatus(d.Status),
		Tone:            model.NewTone(d.Personalization, d.Formality, d.Persuasiveness),
		SubjectFallback: d.SubjectFallback,
		CreatedAt:       d.CreatedAt,
		UpdatedAt:       d.UpdatedAt,
		SentAt:          d.SentAt,
		OpenedAt:        d.OpenedAt,
		RepliedAt:       d.RepliedAt,
	}
}

type EmailRepository struct {
	collection *mongo.Collection
}

func NewEmailRepository(db *mongo.Database) *EmailRepository {
	return &EmailRepository{collection: db.Collection(collectionEmails)}
}

func (r *EmailRepository) Create(ctx context.Context, e *model.Email) error {
	if _, err := r.collection.InsertOne(ctx, emailToDocument(e)); err != nil {
		return fmt.Errorf("failed to save email: %w", err)
	}
	return nil
}

func (r *EmailRepository) FindByID(ctx context.Context, id string) (*model.Email, error) {
	var doc emailDocument
	if err := r.collection.FindOne(ctx, bson.M{"id": id}).Decode(&doc); err != nil {
		return nil, notFound(err)
	}
	return doc.toModel(), nil
}

func (r *EmailRepository) FindByWorkspaceID(ctx context.Context, workspaceID string) ([]*model.Email, error) {
	cur, err := r.collection.Find(ctx, bson.M{"workspace_id": workspaceID},
		options.Find().SetSort(bson.D{{Key: "created_at", Value: -1}}))
	if err != nil {
		return nil, fmt.Errorf("failed to list emails: %w", err)
	}
	return decodeAll(ctx, cur, (*emailDocument).toModel)
}

func (r *EmailRepository) FindActive(ctx context.Context, workspaceID, recipientID string) (*model.Email, error) {
	filter := bson.M{
		"workspace_id": workspaceID,
		"recipient_id": recipientID,
		"status":       bson.M{"$in": bson.A{string(model.StatusDraft), string(model.StatusFailed)}},
	}
	opts := options.FindOne().SetSort(bson.D{{Key: "updated_at", Value: -1}})

	var doc emailDocument
	if err := r.collection.FindOne(ctx, filter, opts).Decode(&doc); err != nil {
		return nil, notFound(err)
	}
	return doc.toModel(), nil
}

func (r *EmailRepository) Update(ctx context.Context, e *model.Email) error {
	res, err := r.collection.ReplaceOne(ctx, bson.M{"id": e.ID}, emailToDocument(e))
	if err != nil {
		return fmt.Errorf("failed to update email: %w", err)
	}
	if res.MatchedCount == 0 {
		return repository.ErrNotFound
	}
	return nil
}
