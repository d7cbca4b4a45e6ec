// Package ddb keeps durable records in a DynamoDB table, one item per
// namespace+grayscale key.
package ddb

import (
	"confetch/internal/types"
	"context"
	"errors"

	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	ddbTypes "github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	log "github.com/sirupsen/logrus"
)

const recordKeyAttr = "record_key"

type Store struct {
	table string
	cli   *dynamodb.Client
	appID string
}

// New builds the store and creates the table if it does not exist yet.
// An already-existing table is not an error.
func New(table string, cli *dynamodb.Client, appID string) *Store {
	createTableIfNotExists(cli, table)
	return &Store{table: table, cli: cli, appID: appID}
}

func (s *Store) Load(ctx context.Context, key string) (types.CachedRecord, error) {
	out, err := s.cli.GetItem(ctx, &dynamodb.GetItemInput{
		TableName: &s.table,
		Key: map[string]ddbTypes.AttributeValue{
			recordKeyAttr: &ddbTypes.AttributeValueMemberS{Value: s.recordKey(key)},
		},
		ConsistentRead: awsBool(true),
	})
	if err != nil {
		return types.CachedRecord{}, types.Err(types.ErrDurableStore, err, "reading record %s", key)
	}
	if out.Item == nil {
		return types.CachedRecord{}, types.ErrNotFound
	}
	var rec types.CachedRecord
	if err := attributevalue.UnmarshalMap(out.Item, &rec); err != nil {
		return types.CachedRecord{}, types.Err(types.ErrDurableStore, err, "decoding record %s", key)
	}
	return rec, nil
}

func (s *Store) Store(ctx context.Context, key string, rec types.CachedRecord) error {
	item, err := attributevalue.MarshalMap(struct {
		RecordKey string `dynamodbav:"record_key"`
		types.CachedRecord
	}{
		RecordKey:    s.recordKey(key),
		CachedRecord: rec,
	})
	if err != nil {
		return types.Err(types.ErrDurableStore, err, "encoding record %s", key)
	}
	_, err = s.cli.PutItem(ctx, &dynamodb.PutItemInput{
		TableName: &s.table,
		Item:      item,
	})
	if err != nil {
		return types.Err(types.ErrDurableStore, err, "writing record %s", key)
	}
	return nil
}

func (s *Store) recordKey(key string) string {
	return s.appID + "#" + key
}

func createTableIfNotExists(cli *dynamodb.Client, table string) {
	_, err := cli.CreateTable(context.Background(), &dynamodb.CreateTableInput{
		TableName: &table,
		AttributeDefinitions: []ddbTypes.AttributeDefinition{
			{AttributeName: awsString(recordKeyAttr), AttributeType: ddbTypes.ScalarAttributeTypeS},
		},
		KeySchema: []ddbTypes.KeySchemaElement{
			{AttributeName: awsString(recordKeyAttr), KeyType: ddbTypes.KeyTypeHash},
		},
		BillingMode: ddbTypes.BillingModePayPerRequest,
	})
	if err != nil {
		var exists *ddbTypes.ResourceInUseException
		if !errors.As(err, &exists) {
			log.WithError(err).Warnf("could not ensure table %s", table)
		}
	}
}

func awsBool(b bool) *bool       { return &b }
func awsString(s string) *string { return &s }
