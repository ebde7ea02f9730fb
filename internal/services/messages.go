package services

import (
	"context"
	"strings"

	"github.com/hongminglow/farmconnect/internal/backend"
	"github.com/hongminglow/farmconnect/internal/models"
	"github.com/hongminglow/farmconnect/internal/storage"
)

const (
	// DefaultMessagePageSize is the conversation page size.
	DefaultMessagePageSize = 20
	// InboxScanLimit bounds how many recent messages the inbox summary reads.
	InboxScanLimit = 500
	// MaxMessageLength bounds message content.
	MaxMessageLength = 4000
)

// Messages reads and writes direct messages.
type Messages struct {
	tables   backend.Tables
	profiles *Profiles
}

func NewMessages(tables backend.Tables, profiles *Profiles) *Messages {
	return &Messages{tables: tables, profiles: profiles}
}

// Conversation pages through the messages exchanged between userID and
// counterpartID in either direction, newest first.
func (m *Messages) Conversation(ctx context.Context, userID, counterpartID string, pageNum, pageSize int) (models.Page[models.Message], error) {
	pageSize = pageSizeOr(pageSize, DefaultMessagePageSize)
	from, to := storage.PageRange(pageNum, pageSize)
	q := storage.From(storage.TableMessages).
		Or(
			storage.And(storage.Eq("sender_id", userID), storage.Eq("receiver_id", counterpartID)),
			storage.And(storage.Eq("sender_id", counterpartID), storage.Eq("receiver_id", userID)),
		).
		Order("created_at", false).
		Range(from, to).
		WithCount()
	res, err := m.tables.Select(ctx, q)
	if err != nil {
		return models.Page[models.Message]{}, err
	}
	return page[models.Message](res, pageNum, pageSize)
}

// Send appends a message from senderID to receiverID.
func (m *Messages) Send(ctx context.Context, senderID, receiverID, content string) (models.Message, error) {
	content = strings.TrimSpace(content)
	switch {
	case content == "":
		return models.Message{}, invalid("send message", "message is empty")
	case len(content) > MaxMessageLength:
		return models.Message{}, invalid("send message", "message is too long")
	case receiverID == "" || receiverID == senderID:
		return models.Message{}, invalid("send message", "pick someone else to message")
	}
	inserted, err := m.tables.Insert(ctx, storage.TableMessages, storage.Row{
		"sender_id":   senderID,
		"receiver_id": receiverID,
		"content":     content,
	})
	if err != nil {
		return models.Message{}, err
	}
	return one[models.Message]([]storage.Row{inserted}, "insert", storage.TableMessages)
}

// MarkRead flags every unread message from counterpartID to userID as read
// and returns how many changed.
func (m *Messages) MarkRead(ctx context.Context, userID, counterpartID string) (int, error) {
	rows, err := m.tables.Update(ctx, storage.TableMessages, storage.Row{"read": true},
		storage.Eq("sender_id", counterpartID),
		storage.Eq("receiver_id", userID),
		storage.Eq("read", false),
	)
	if err != nil {
		return 0, err
	}
	return len(rows), nil
}

// UnreadCount returns how many messages userID has not read.
func (m *Messages) UnreadCount(ctx context.Context, userID string) (int, error) {
	q := storage.From(storage.TableMessages).
		Select("id").
		Eq("receiver_id", userID).
		Eq("read", false).
		Range(0, 0).
		WithCount()
	res, err := m.tables.Select(ctx, q)
	if err != nil {
		return 0, err
	}
	return res.Count, nil
}

// Inbox summarises userID's conversations, most recent first, with the
// counterpart's profile attached when it can be read.
func (m *Messages) Inbox(ctx context.Context, userID string) ([]models.Conversation, error) {
	q := storage.From(storage.TableMessages).
		Or(storage.And(storage.Eq("sender_id", userID)), storage.And(storage.Eq("receiver_id", userID))).
		Order("created_at", false).
		Take(InboxScanLimit)
	res, err := m.tables.Select(ctx, q)
	if err != nil {
		return nil, err
	}
	msgs, err := storage.DecodeRows[models.Message](res.Rows)
	if err != nil {
		return nil, err
	}

	var convs []models.Conversation
	index := make(map[string]int)
	for _, msg := range msgs {
		other := msg.Counterpart(userID)
		i, ok := index[other]
		if !ok {
			i = len(convs)
			index[other] = i
			convs = append(convs, models.Conversation{CounterpartID: other, LastMessage: msg})
		}
		if msg.ReceiverID == userID && !msg.Read {
			convs[i].Unread++
		}
	}

	ids := make([]string, 0, len(convs))
	for _, c := range convs {
		ids = append(ids, c.CounterpartID)
	}
	people, err := m.profiles.Lookup(ctx, ids)
	if err != nil {
		return nil, err
	}
	for i := range convs {
		if u, ok := people[convs[i].CounterpartID]; ok {
			u := u
			convs[i].Counterpart = &u
		}
	}
	if convs == nil {
		convs = []models.Conversation{}
	}
	return convs, nil
}
