package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"miinplanner-backend/internal/task/domain"

	"cloud.google.com/go/firestore"
	"google.golang.org/api/iterator"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

type firestoreTaskRepository struct {
	client *firestore.Client
}

// NewFirestoreTaskRepository creates a TaskRepository backed by the tasks collection
func NewFirestoreTaskRepository(client *firestore.Client) TaskRepository {
	return &firestoreTaskRepository{client: client}
}

func (r *firestoreTaskRepository) collection() *firestore.CollectionRef {
	return r.client.Collection(tasksCollection)
}

func (r *firestoreTaskRepository) ownerQuery(userID string) firestore.Query {
	return r.collection().Where(ownerField, "==", userID)
}

func (r *firestoreTaskRepository) ListByUser(ctx context.Context, userID string) ([]domain.Task, error) {
	iter := r.ownerQuery(userID).
		OrderBy("order", firestore.Asc).
		OrderBy("createdAt", firestore.Desc).
		Documents(ctx)
	defer iter.Stop()

	now := time.Now()
	tasks := []domain.Task{}
	for {
		doc, err := iter.Next()
		if errors.Is(err, iterator.Done) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("failed to list tasks: %w", err)
		}
		tasks = append(tasks, fromDocument(doc.Ref.ID, doc.Data(), now))
	}
	return tasks, nil
}

func (r *firestoreTaskRepository) Create(ctx context.Context, task *domain.Task) error {
	ref := r.collection().NewDoc()
	task.ID = ref.ID
	prepareNew(task, time.Now().UTC())

	if _, err := ref.Create(ctx, toDocument(*task)); err != nil {
		return fmt.Errorf("failed to create task: %w", err)
	}
	return nil
}

func (r *firestoreTaskRepository) Update(ctx context.Context, userID, id string, patch domain.Patch) error {
	ref := r.collection().Doc(id)
	return r.client.RunTransaction(ctx, func(ctx context.Context, tx *firestore.Transaction) error {
		if err := checkOwner(tx, ref, userID); err != nil {
			return err
		}

		updates := []firestore.Update{{Path: "updatedAt", Value: time.Now().UTC()}}
		for path, value := range updateFields(patch) {
			updates = append(updates, firestore.Update{Path: path, Value: value})
		}
		return tx.Update(ref, updates)
	})
}

func (r *firestoreTaskRepository) Delete(ctx context.Context, userID, id string) error {
	ref := r.collection().Doc(id)
	return r.client.RunTransaction(ctx, func(ctx context.Context, tx *firestore.Transaction) error {
		if err := checkOwner(tx, ref, userID); err != nil {
			return err
		}
		return tx.Delete(ref)
	})
}

// ReplaceAll reads every owned task, then deletes them and writes the new
// set inside one transaction so readers never see a half-migrated list.
func (r *firestoreTaskRepository) ReplaceAll(ctx context.Context, userID string, tasks []domain.Task) error {
	return r.client.RunTransaction(ctx, func(ctx context.Context, tx *firestore.Transaction) error {
		existing, err := tx.Documents(r.ownerQuery(userID)).GetAll()
		if err != nil {
			return fmt.Errorf("failed to read tasks: %w", err)
		}
		for _, doc := range existing {
			if err := tx.Delete(doc.Ref); err != nil {
				return err
			}
		}

		now := time.Now().UTC()
		for _, t := range tasks {
			t = t.Clone()
			ref := r.collection().NewDoc()
			t.ID = ref.ID
			t.UserID = userID
			prepareNew(&t, now)
			if err := tx.Create(ref, toDocument(t)); err != nil {
				return err
			}
		}
		return nil
	})
}

func checkOwner(tx *firestore.Transaction, ref *firestore.DocumentRef, userID string) error {
	snap, err := tx.Get(ref)
	if status.Code(err) == codes.NotFound {
		return domain.ErrTaskNotFound
	}
	if err != nil {
		return err
	}
	if owner, _ := snap.Data()[ownerField].(string); owner != userID {
		return domain.ErrTaskNotFound
	}
	return nil
}
