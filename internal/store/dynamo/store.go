// Package dynamo implements the document store on DynamoDB.
package dynamo

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync/atomic"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/trace"

	"github.com/wolfman30/lysandra-ai-platform/internal/store"
	"github.com/wolfman30/lysandra-ai-platform/pkg/logging"
)

// sortKeyLayout is fixed-width so lexical order matches time order.
const sortKeyLayout = "2006-01-02T15:04:05.000000000Z"

// AppointmentDateIndex is the GSI keyed by appointment date.
const AppointmentDateIndex = "date-index"

type dynamoAPI interface {
	PutItem(context.Context, *dynamodb.PutItemInput, ...func(*dynamodb.Options)) (*dynamodb.PutItemOutput, error)
	GetItem(context.Context, *dynamodb.GetItemInput, ...func(*dynamodb.Options)) (*dynamodb.GetItemOutput, error)
	UpdateItem(context.Context, *dynamodb.UpdateItemInput, ...func(*dynamodb.Options)) (*dynamodb.UpdateItemOutput, error)
	Query(context.Context, *dynamodb.QueryInput, ...func(*dynamodb.Options)) (*dynamodb.QueryOutput, error)
	Scan(context.Context, *dynamodb.ScanInput, ...func(*dynamodb.Options)) (*dynamodb.ScanOutput, error)
}

// Tables names the four tables used by Store.
type Tables struct {
	Conversations string
	Messages      string
	Documents     string
	Appointments  string
}

// TablesWithPrefix derives table names from a shared prefix.
func TablesWithPrefix(prefix string) Tables {
	prefix = strings.TrimSuffix(strings.TrimSpace(prefix), "-")
	return Tables{
		Conversations: prefix + "-conversations",
		Messages:      prefix + "-messages",
		Documents:     prefix + "-documents",
		Appointments:  prefix + "-appointments",
	}
}

type messageItem struct {
	ConversationID string `dynamodbav:"conversationId"`
	SortKey        string `dynamodbav:"sortKey"`
	ID             string `dynamodbav:"id"`
	Role           string `dynamodbav:"role"`
	Content        string `dynamodbav:"content"`
	Timestamp      string `dynamodbav:"timestamp"`
}

type conversationItem struct {
	ID            string `dynamodbav:"id"`
	LastActivity  string `dynamodbav:"lastActivity"`
	LastMessageID string `dynamodbav:"lastMessageId,omitempty"`
	LastRole      string `dynamodbav:"lastRole,omitempty"`
	LastContent   string `dynamodbav:"lastContent,omitempty"`
}

type documentItem struct {
	Collection string `dynamodbav:"collection"`
	ID         string `dynamodbav:"id"`
	Data       string `dynamodbav:"data"`
	UpdatedAt  string `dynamodbav:"updatedAt"`
}

type appointmentItem struct {
	ID         string `dynamodbav:"id"`
	ClientName string `dynamodbav:"clientName"`
	Date       string `dynamodbav:"date"`
	Type       string `dynamodbav:"type"`
	Status     string `dynamodbav:"status"`
	CreatedAt  string `dynamodbav:"createdAt"`
}

// Store persists conversations, documents, and appointments in DynamoDB.
type Store struct {
	client dynamoAPI
	tables Tables
	logger *logging.Logger
	tracer trace.Tracer

	// seq breaks sort key ties between messages written at the same instant.
	seq atomic.Uint64
}

// New builds a DynamoDB-backed store.
func New(client dynamoAPI, tables Tables, logger *logging.Logger) *Store {
	if client == nil {
		panic("dynamo: dynamodb client cannot be nil")
	}
	if tables.Messages == "" || tables.Conversations == "" || tables.Documents == "" || tables.Appointments == "" {
		panic("dynamo: table names cannot be empty")
	}
	if logger == nil {
		logger = logging.Default()
	}
	return &Store{
		client: client,
		tables: tables,
		logger: logger,
		tracer: otel.Tracer("lysandra.internal.store.dynamo"),
	}
}

var _ store.Store = (*Store)(nil)

func (s *Store) AppendMessage(ctx context.Context, conversationID string, msg store.Message) error {
	ctx, span := s.tracer.Start(ctx, "store.dynamo.append_message")
	defer span.End()

	if msg.ID == "" {
		msg.ID = uuid.NewString()
	}
	if msg.Timestamp.IsZero() {
		msg.Timestamp = time.Now().UTC()
	}
	ts := msg.Timestamp.UTC()

	item, err := attributevalue.MarshalMap(messageItem{
		ConversationID: conversationID,
		SortKey:        messageSortKey(ts, s.seq.Add(1), msg.ID),
		ID:             msg.ID,
		Role:           msg.Role,
		Content:        msg.Content,
		Timestamp:      ts.Format(time.RFC3339Nano),
	})
	if err != nil {
		return fmt.Errorf("dynamo: marshal message: %w", err)
	}
	if _, err := s.client.PutItem(ctx, &dynamodb.PutItemInput{
		TableName: aws.String(s.tables.Messages),
		Item:      item,
	}); err != nil {
		span.RecordError(err)
		return unavailable("put message", err)
	}

	// The conversation marker only moves forward in time.
	_, err = s.client.UpdateItem(ctx, &dynamodb.UpdateItemInput{
		TableName: aws.String(s.tables.Conversations),
		Key: map[string]types.AttributeValue{
			"id": &types.AttributeValueMemberS{Value: conversationID},
		},
		UpdateExpression:    aws.String("SET lastActivity = :ts, lastMessageId = :mid, lastRole = :role, lastContent = :content"),
		ConditionExpression: aws.String("attribute_not_exists(lastActivity) OR lastActivity <= :ts"),
		ExpressionAttributeValues: map[string]types.AttributeValue{
			":ts":      &types.AttributeValueMemberS{Value: ts.Format(sortKeyLayout)},
			":mid":     &types.AttributeValueMemberS{Value: msg.ID},
			":role":    &types.AttributeValueMemberS{Value: msg.Role},
			":content": &types.AttributeValueMemberS{Value: msg.Content},
		},
	})
	if err != nil {
		if isConditionFailed(err) {
			s.logger.Debug("dynamo: kept newer conversation marker", "conversation_id", conversationID)
			return nil
		}
		span.RecordError(err)
		return unavailable("update conversation", err)
	}
	return nil
}

func (s *Store) RecentMessages(ctx context.Context, conversationID string, limit int) ([]store.Message, error) {
	ctx, span := s.tracer.Start(ctx, "store.dynamo.recent_messages")
	defer span.End()

	if limit <= 0 {
		return nil, nil
	}
	out, err := s.client.Query(ctx, &dynamodb.QueryInput{
		TableName:              aws.String(s.tables.Messages),
		KeyConditionExpression: aws.String("conversationId = :cid"),
		ExpressionAttributeValues: map[string]types.AttributeValue{
			":cid": &types.AttributeValueMemberS{Value: conversationID},
		},
		ScanIndexForward: aws.Bool(false),
		Limit:            aws.Int32(int32(limit)),
	})
	if err != nil {
		span.RecordError(err)
		return nil, unavailable("query recent messages", err)
	}
	return decodeMessages(out.Items)
}

func (s *Store) History(ctx context.Context, conversationID string) ([]store.Message, error) {
	ctx, span := s.tracer.Start(ctx, "store.dynamo.history")
	defer span.End()

	var (
		items []map[string]types.AttributeValue
		start map[string]types.AttributeValue
	)
	for {
		out, err := s.client.Query(ctx, &dynamodb.QueryInput{
			TableName:              aws.String(s.tables.Messages),
			KeyConditionExpression: aws.String("conversationId = :cid"),
			ExpressionAttributeValues: map[string]types.AttributeValue{
				":cid": &types.AttributeValueMemberS{Value: conversationID},
			},
			ScanIndexForward:  aws.Bool(true),
			ExclusiveStartKey: start,
		})
		if err != nil {
			span.RecordError(err)
			return nil, unavailable("query history", err)
		}
		items = append(items, out.Items...)
		if len(out.LastEvaluatedKey) == 0 {
			break
		}
		start = out.LastEvaluatedKey
	}
	return decodeMessages(items)
}

// messageSortKey orders by timestamp, then by write order within this
// process. The message ID keeps keys unique across processes.
func messageSortKey(ts time.Time, seq uint64, id string) string {
	return fmt.Sprintf("%s#%020d#%s", ts.Format(sortKeyLayout), seq, id)
}

func decodeMessages(items []map[string]types.AttributeValue) ([]store.Message, error) {
	var records []messageItem
	if err := attributevalue.UnmarshalListOfMaps(items, &records); err != nil {
		return nil, fmt.Errorf("dynamo: decode messages: %w", err)
	}
	out := make([]store.Message, 0, len(records))
	for _, r := range records {
		ts, _ := time.Parse(time.RFC3339Nano, r.Timestamp)
		out = append(out, store.Message{ID: r.ID, Role: r.Role, Content: r.Content, Timestamp: ts})
	}
	return out, nil
}

func (s *Store) ListConversations(ctx context.Context, limit int) ([]store.ConversationSummary, error) {
	ctx, span := s.tracer.Start(ctx, "store.dynamo.list_conversations")
	defer span.End()

	items, err := s.scanAll(ctx, s.tables.Conversations)
	if err != nil {
		span.RecordError(err)
		return nil, err
	}
	var records []conversationItem
	if err := attributevalue.UnmarshalListOfMaps(items, &records); err != nil {
		return nil, fmt.Errorf("dynamo: decode conversations: %w", err)
	}

	out := make([]store.ConversationSummary, 0, len(records))
	for _, r := range records {
		last, _ := time.Parse(sortKeyLayout, r.LastActivity)
		summary := store.ConversationSummary{ID: r.ID, LastActivity: last}
		if r.LastMessageID != "" {
			summary.LastMessage = &store.Message{ID: r.LastMessageID, Role: r.LastRole, Content: r.LastContent, Timestamp: last}
		}
		out = append(out, summary)
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].LastActivity.Equal(out[j].LastActivity) {
			return out[i].LastActivity.After(out[j].LastActivity)
		}
		return out[i].ID < out[j].ID
	})
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (s *Store) CountConversations(ctx context.Context) (int, error) {
	return s.countAll(ctx, s.tables.Conversations)
}

func (s *Store) GetDocument(ctx context.Context, collection, id string) (json.RawMessage, error) {
	ctx, span := s.tracer.Start(ctx, "store.dynamo.get_document")
	defer span.End()

	out, err := s.client.GetItem(ctx, &dynamodb.GetItemInput{
		TableName: aws.String(s.tables.Documents),
		Key: map[string]types.AttributeValue{
			"collection": &types.AttributeValueMemberS{Value: collection},
			"id":         &types.AttributeValueMemberS{Value: id},
		},
	})
	if err != nil {
		span.RecordError(err)
		return nil, unavailable("get document", err)
	}
	if out.Item == nil {
		return nil, store.ErrNotFound
	}
	var doc documentItem
	if err := attributevalue.UnmarshalMap(out.Item, &doc); err != nil {
		return nil, fmt.Errorf("dynamo: decode document: %w", err)
	}
	return json.RawMessage(doc.Data), nil
}

func (s *Store) SetDocument(ctx context.Context, collection, id string, data json.RawMessage) error {
	ctx, span := s.tracer.Start(ctx, "store.dynamo.set_document")
	defer span.End()

	item, err := attributevalue.MarshalMap(documentItem{
		Collection: collection,
		ID:         id,
		Data:       string(data),
		UpdatedAt:  time.Now().UTC().Format(time.RFC3339Nano),
	})
	if err != nil {
		return fmt.Errorf("dynamo: marshal document: %w", err)
	}
	if _, err := s.client.PutItem(ctx, &dynamodb.PutItemInput{
		TableName: aws.String(s.tables.Documents),
		Item:      item,
	}); err != nil {
		span.RecordError(err)
		return unavailable("put document", err)
	}
	return nil
}

func (s *Store) FindAppointments(ctx context.Context, date, status string) ([]store.Appointment, error) {
	ctx, span := s.tracer.Start(ctx, "store.dynamo.find_appointments")
	defer span.End()

	input := &dynamodb.QueryInput{
		TableName:              aws.String(s.tables.Appointments),
		IndexName:              aws.String(AppointmentDateIndex),
		KeyConditionExpression: aws.String("#date = :date"),
		ExpressionAttributeNames: map[string]string{
			"#date": "date",
		},
		ExpressionAttributeValues: map[string]types.AttributeValue{
			":date": &types.AttributeValueMemberS{Value: date},
		},
	}
	if status != "" {
		input.FilterExpression = aws.String("#status = :status")
		input.ExpressionAttributeNames["#status"] = "status"
		input.ExpressionAttributeValues[":status"] = &types.AttributeValueMemberS{Value: status}
	}

	out, err := s.client.Query(ctx, input)
	if err != nil {
		span.RecordError(err)
		return nil, unavailable("query appointments", err)
	}
	return decodeAppointments(out.Items)
}

func (s *Store) CreateAppointment(ctx context.Context, appt store.Appointment) (store.Appointment, error) {
	ctx, span := s.tracer.Start(ctx, "store.dynamo.create_appointment")
	defer span.End()

	if appt.ID == "" {
		appt.ID = uuid.NewString()
	}
	if appt.CreatedAt.IsZero() {
		appt.CreatedAt = time.Now().UTC()
	}
	item, err := attributevalue.MarshalMap(appointmentItem{
		ID:         appt.ID,
		ClientName: appt.ClientName,
		Date:       appt.Date,
		Type:       appt.Type,
		Status:     appt.Status,
		CreatedAt:  appt.CreatedAt.UTC().Format(time.RFC3339Nano),
	})
	if err != nil {
		return store.Appointment{}, fmt.Errorf("dynamo: marshal appointment: %w", err)
	}
	if _, err := s.client.PutItem(ctx, &dynamodb.PutItemInput{
		TableName:           aws.String(s.tables.Appointments),
		Item:                item,
		ConditionExpression: aws.String("attribute_not_exists(id)"),
	}); err != nil {
		span.RecordError(err)
		return store.Appointment{}, unavailable("put appointment", err)
	}
	return appt, nil
}

func (s *Store) ListAppointments(ctx context.Context, limit int) ([]store.Appointment, error) {
	ctx, span := s.tracer.Start(ctx, "store.dynamo.list_appointments")
	defer span.End()

	items, err := s.scanAll(ctx, s.tables.Appointments)
	if err != nil {
		span.RecordError(err)
		return nil, err
	}
	appts, err := decodeAppointments(items)
	if err != nil {
		return nil, err
	}
	sort.SliceStable(appts, func(i, j int) bool {
		return appts[i].CreatedAt.After(appts[j].CreatedAt)
	})
	if limit > 0 && len(appts) > limit {
		appts = appts[:limit]
	}
	return appts, nil
}

func (s *Store) CountAppointments(ctx context.Context) (int, error) {
	return s.countAll(ctx, s.tables.Appointments)
}

func decodeAppointments(items []map[string]types.AttributeValue) ([]store.Appointment, error) {
	var records []appointmentItem
	if err := attributevalue.UnmarshalListOfMaps(items, &records); err != nil {
		return nil, fmt.Errorf("dynamo: decode appointments: %w", err)
	}
	out := make([]store.Appointment, 0, len(records))
	for _, r := range records {
		created, _ := time.Parse(time.RFC3339Nano, r.CreatedAt)
		out = append(out, store.Appointment{
			ID:         r.ID,
			ClientName: r.ClientName,
			Date:       r.Date,
			Type:       r.Type,
			Status:     r.Status,
			CreatedAt:  created,
		})
	}
	return out, nil
}

func (s *Store) scanAll(ctx context.Context, table string) ([]map[string]types.AttributeValue, error) {
	var (
		items []map[string]types.AttributeValue
		start map[string]types.AttributeValue
	)
	for {
		out, err := s.client.Scan(ctx, &dynamodb.ScanInput{
			TableName:         aws.String(table),
			ExclusiveStartKey: start,
		})
		if err != nil {
			return nil, unavailable("scan "+table, err)
		}
		items = append(items, out.Items...)
		if len(out.LastEvaluatedKey) == 0 {
			return items, nil
		}
		start = out.LastEvaluatedKey
	}
}

func (s *Store) countAll(ctx context.Context, table string) (int, error) {
	var (
		total int
		start map[string]types.AttributeValue
	)
	for {
		out, err := s.client.Scan(ctx, &dynamodb.ScanInput{
			TableName:         aws.String(table),
			Select:            types.SelectCount,
			ExclusiveStartKey: start,
		})
		if err != nil {
			return 0, unavailable("count "+table, err)
		}
		total += int(out.Count)
		if len(out.LastEvaluatedKey) == 0 {
			return total, nil
		}
		start = out.LastEvaluatedKey
	}
}

// Ping checks that the documents table is reachable.
func (s *Store) Ping(ctx context.Context) error {
	_, err := s.client.GetItem(ctx, &dynamodb.GetItemInput{
		TableName: aws.String(s.tables.Documents),
		Key: map[string]types.AttributeValue{
			"collection": &types.AttributeValueMemberS{Value: store.CollectionSettings},
			"id":         &types.AttributeValueMemberS{Value: store.DocSettingsMain},
		},
	})
	if err != nil {
		return unavailable("ping", err)
	}
	return nil
}

func (s *Store) Close() {}

func isConditionFailed(err error) bool {
	var ccf *types.ConditionalCheckFailedException
	return errors.As(err, &ccf)
}

func unavailable(op string, err error) error {
	return fmt.Errorf("dynamo: %s: %w: %w", op, store.ErrStoreUnavailable, err)
}
