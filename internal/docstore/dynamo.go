package docstore

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/google/uuid"
)

// DynamoStore keeps every collection in a single DynamoDB table with the
// collection name as partition key and the document ID as sort key. Filters
// compile to filter expressions over the nested fields map.
type DynamoStore struct {
	client *dynamodb.Client
	table  string
}

func NewDynamoStore(client *dynamodb.Client, table string) *DynamoStore {
	return &DynamoStore{client: client, table: table}
}

var _ Store = (*DynamoStore)(nil)

func (s *DynamoStore) Create(ctx context.Context, collection string, fields map[string]any) (*Document, error) {
	fieldsAttr, err := attributevalue.MarshalMap(fields)
	if err != nil {
		return nil, fmt.Errorf("failed to encode document fields: %w", err)
	}

	now := time.Now().UTC()
	doc := &Document{
		ID:        uuid.New().String(),
		Fields:    fields,
		CreatedAt: now,
		UpdatedAt: now,
	}

	_, err = s.client.PutItem(ctx, &dynamodb.PutItemInput{
		TableName: aws.String(s.table),
		Item: map[string]types.AttributeValue{
			"collection": &types.AttributeValueMemberS{Value: collection},
			"id":         &types.AttributeValueMemberS{Value: doc.ID},
			"fields":     &types.AttributeValueMemberM{Value: fieldsAttr},
			"created_at": &types.AttributeValueMemberS{Value: now.Format(time.RFC3339Nano)},
			"updated_at": &types.AttributeValueMemberS{Value: now.Format(time.RFC3339Nano)},
		},
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create document: %w", err)
	}

	return doc, nil
}

// buildQuery compiles a Filter into a query over the single-table layout.
func (s *DynamoStore) buildQuery(collection string, filter Filter) *dynamodb.QueryInput {
	exprNames := map[string]string{
		"#collection": "collection",
	}
	exprValues := map[string]types.AttributeValue{
		":collection": &types.AttributeValueMemberS{Value: collection},
	}

	keyCondition := "#collection = :collection"

	// Unused expression attribute names are rejected, so #fields is only
	// declared once a field predicate needs it.
	var clauses []string
	i := 0
	fieldClause := func(eq Eq) string {
		exprNames["#fields"] = "fields"
		nameKey := fmt.Sprintf("#f%d", i)
		valueKey := fmt.Sprintf(":v%d", i)
		exprNames[nameKey] = eq.Field
		exprValues[valueKey] = &types.AttributeValueMemberS{Value: eq.Value}
		i++
		return fmt.Sprintf("#fields.%s = %s", nameKey, valueKey)
	}

	for _, eq := range filter.All {
		// Key attributes cannot appear in a filter expression, so an ID
		// predicate narrows the key condition instead.
		if eq.Field == IDField {
			exprNames["#id"] = "id"
			exprValues[":id"] = &types.AttributeValueMemberS{Value: eq.Value}
			keyCondition = "#collection = :collection AND #id = :id"
			continue
		}
		clauses = append(clauses, fieldClause(eq))
	}

	if len(filter.Any) > 0 {
		anyClauses := make([]string, 0, len(filter.Any))
		for _, eq := range filter.Any {
			anyClauses = append(anyClauses, fieldClause(eq))
		}
		clauses = append(clauses, "("+strings.Join(anyClauses, " OR ")+")")
	}

	queryInput := &dynamodb.QueryInput{
		TableName:                 aws.String(s.table),
		KeyConditionExpression:    aws.String(keyCondition),
		ExpressionAttributeNames:  exprNames,
		ExpressionAttributeValues: exprValues,
	}
	if len(clauses) > 0 {
		queryInput.FilterExpression = aws.String(strings.Join(clauses, " AND "))
	}
	return queryInput
}

func (s *DynamoStore) List(ctx context.Context, collection string, filter Filter) ([]*Document, error) {
	// The Limit on QueryInput applies before filtering, so the result cap is
	// enforced after collecting pages instead.
	var documents []*Document
	paginator := dynamodb.NewQueryPaginator(s.client, s.buildQuery(collection, filter))
	for paginator.HasMorePages() {
		page, err := paginator.NextPage(ctx)
		if err != nil {
			return nil, fmt.Errorf("failed to list documents: %w", err)
		}
		for _, raw := range page.Items {
			doc, err := unmarshalDynamoItem(raw)
			if err != nil {
				return nil, err
			}
			documents = append(documents, doc)
			if filter.Limit > 0 && len(documents) == filter.Limit {
				return documents, nil
			}
		}
	}

	return documents, nil
}

func (s *DynamoStore) Update(ctx context.Context, collection string, id string, fields map[string]any) (*Document, error) {
	fieldsAttr, err := attributevalue.MarshalMap(fields)
	if err != nil {
		return nil, fmt.Errorf("failed to encode document fields: %w", err)
	}

	now := time.Now().UTC()
	result, err := s.client.UpdateItem(ctx, &dynamodb.UpdateItemInput{
		TableName: aws.String(s.table),
		Key: map[string]types.AttributeValue{
			"collection": &types.AttributeValueMemberS{Value: collection},
			"id":         &types.AttributeValueMemberS{Value: id},
		},
		UpdateExpression:    aws.String("SET #fields = :fields, #updated_at = :updated_at"),
		ConditionExpression: aws.String("attribute_exists(id)"),
		ExpressionAttributeNames: map[string]string{
			"#fields":     "fields",
			"#updated_at": "updated_at",
		},
		ExpressionAttributeValues: map[string]types.AttributeValue{
			":fields":     &types.AttributeValueMemberM{Value: fieldsAttr},
			":updated_at": &types.AttributeValueMemberS{Value: now.Format(time.RFC3339Nano)},
		},
		ReturnValues: types.ReturnValueAllNew,
	})
	if err != nil {
		var condErr *types.ConditionalCheckFailedException
		if errors.As(err, &condErr) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to update document: %w", err)
	}

	return unmarshalDynamoItem(result.Attributes)
}

func (s *DynamoStore) Delete(ctx context.Context, collection string, id string) error {
	_, err := s.client.DeleteItem(ctx, &dynamodb.DeleteItemInput{
		TableName: aws.String(s.table),
		Key: map[string]types.AttributeValue{
			"collection": &types.AttributeValueMemberS{Value: collection},
			"id":         &types.AttributeValueMemberS{Value: id},
		},
		ConditionExpression: aws.String("attribute_exists(id)"),
	})
	if err != nil {
		var condErr *types.ConditionalCheckFailedException
		if errors.As(err, &condErr) {
			return ErrNotFound
		}
		return fmt.Errorf("failed to delete document: %w", err)
	}
	return nil
}

func unmarshalDynamoItem(raw map[string]types.AttributeValue) (*Document, error) {
	doc := &Document{}

	if v, ok := raw["id"].(*types.AttributeValueMemberS); ok {
		doc.ID = v.Value
	}
	if v, ok := raw["fields"].(*types.AttributeValueMemberM); ok {
		if err := attributevalue.Unmarshal(&types.AttributeValueMemberM{Value: v.Value}, &doc.Fields); err != nil {
			return nil, fmt.Errorf("failed to decode document fields: %w", err)
		}
	}
	if v, ok := raw["created_at"].(*types.AttributeValueMemberS); ok {
		doc.CreatedAt, _ = time.Parse(time.RFC3339Nano, v.Value)
	}
	if v, ok := raw["updated_at"].(*types.AttributeValueMemberS); ok {
		doc.UpdatedAt, _ = time.Parse(time.RFC3339Nano, v.Value)
	}

	return doc, nil
}
