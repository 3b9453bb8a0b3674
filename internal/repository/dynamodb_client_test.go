package repository

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/stretchr/testify/require"

	"pubmed-chat/internal/domain"
)

type fakeDynamo struct {
	queryOut    *dynamodb.QueryOutput
	queryErr    error
	txErr       error
	lastQueryIn *dynamodb.QueryInput
	lastTxInput *dynamodb.TransactWriteItemsInput
}

func (f *fakeDynamo) Query(_ context.Context, in *dynamodb.QueryInput, _ ...func(*dynamodb.Options)) (*dynamodb.QueryOutput, error) {
	f.lastQueryIn = in
	return f.queryOut, f.queryErr
}

func (f *fakeDynamo) TransactWriteItems(_ context.Context, in *dynamodb.TransactWriteItemsInput, _ ...func(*dynamodb.Options)) (*dynamodb.TransactWriteItemsOutput, error) {
	f.lastTxInput = in
	return &dynamodb.TransactWriteItemsOutput{}, f.txErr
}

var fixedNow = time.Date(2026, 2, 25, 10, 0, 0, 0, time.UTC)

func mustNewClient(t *testing.T, db *fakeDynamo) *Client {
	t.Helper()
	c, err := New(db, "test-table")
	require.NoError(t, err)
	c.now = func() time.Time { return fixedNow }
	return c
}

func makeTurnItem(t *testing.T, turn domain.ConversationTurn) map[string]types.AttributeValue {
	t.Helper()
	item, err := turnItem("abc", turn, 0)
	require.NoError(t, err)
	return item
}

func sAttr(t *testing.T, item map[string]types.AttributeValue, key string) string {
	t.Helper()
	v, err := strAttr(item, key)
	require.NoError(t, err)
	return v
}

func sampleBlocks() []domain.Block {
	return []domain.Block{
		domain.QueryBlock("(diabetes) AND (exercise)"),
		domain.PaperBlock(domain.Paper{
			ArticleRecord: domain.ArticleRecord{
				ID:      "111",
				Title:   "Exercise in type 2 diabetes",
				Authors: "Tanaka H, Suzuki K",
				PubDate: "2023 Jan",
				URL:     domain.ArticleURL("111"),
			},
			Summary: "- 要約",
		}),
		domain.ErrorBlock("❌ 論文情報を取得できませんでした (PMID: 222)"),
	}
}

func TestAppendTurn_UserTurn(t *testing.T) {
	db := &fakeDynamo{}
	c := mustNewClient(t, db)
	at := time.Date(2026, 2, 25, 9, 0, 0, 500, time.UTC)

	err := c.AppendTurn(context.Background(), "abc", domain.UserTurn("運動療法の効果は？", at))
	require.NoError(t, err)
	require.NotNil(t, db.lastTxInput)
	require.Len(t, db.lastTxInput.TransactItems, 2)

	put := db.lastTxInput.TransactItems[0].Put
	require.NotNil(t, put)
	require.Equal(t, "test-table", *put.TableName)
	require.Equal(t, "attribute_not_exists(PK) AND attribute_not_exists(SK)", *put.ConditionExpression)
	require.Equal(t, "CONV#abc", sAttr(t, put.Item, "PK"))
	require.Equal(t, "MSG#2026-02-25T09:00:00.000000500Z#user", sAttr(t, put.Item, "SK"))
	require.Equal(t, "user", sAttr(t, put.Item, "role"))
	require.Equal(t, "運動療法の効果は？", sAttr(t, put.Item, "text"))
	require.NotContains(t, put.Item, "blocks")

	update := db.lastTxInput.TransactItems[1].Update
	require.NotNil(t, update)
	require.Equal(t, skMeta, update.Key["SK"].(*types.AttributeValueMemberS).Value)
	require.Contains(t, *update.UpdateExpression, "ADD turns :one")
	require.Equal(t, "ttl", update.ExpressionAttributeNames["#ttl"])
}

func TestAppendTurn_AssistantTurnRoundTrips(t *testing.T) {
	db := &fakeDynamo{}
	c := mustNewClient(t, db)
	turn := domain.AssistantTurn(sampleBlocks(), time.Date(2026, 2, 25, 9, 0, 1, 0, time.UTC))

	require.NoError(t, c.AppendTurn(context.Background(), "abc", turn))
	put := db.lastTxInput.TransactItems[0].Put
	require.Contains(t, put.Item, "blocks")

	db.queryOut = &dynamodb.QueryOutput{Items: []map[string]types.AttributeValue{put.Item}}
	turns, err := c.GetTranscript(context.Background(), "abc", 10)
	require.NoError(t, err)
	require.Len(t, turns, 1)
	require.Equal(t, turn, turns[0])
}

func TestAppendTurn_ZeroCreatedAtUsesClock(t *testing.T) {
	db := &fakeDynamo{}
	c := mustNewClient(t, db)
	require.NoError(t, c.AppendTurn(context.Background(), "abc", domain.ConversationTurn{Role: domain.RoleUser, Text: "hi"}))
	require.Equal(t, "MSG#2026-02-25T10:00:00.000000000Z#user", sAttr(t, db.lastTxInput.TransactItems[0].Put.Item, "SK"))
}

func TestAppendTurn_Validation(t *testing.T) {
	c := mustNewClient(t, &fakeDynamo{})

	err := c.AppendTurn(context.Background(), " ", domain.UserTurn("hi", fixedNow))
	require.Error(t, err)
	require.Contains(t, err.Error(), "conversation id")

	err = c.AppendTurn(context.Background(), "abc", domain.ConversationTurn{Role: "system", CreatedAt: fixedNow})
	require.Error(t, err)
	require.Contains(t, err.Error(), "unknown role")
}

func TestAppendTurn_DynamoError(t *testing.T) {
	db := &fakeDynamo{txErr: errors.New("transaction canceled")}
	c := mustNewClient(t, db)
	err := c.AppendTurn(context.Background(), "abc", domain.UserTurn("hi", fixedNow))
	require.Error(t, err)
	require.Contains(t, err.Error(), "AppendTurn")
}

func TestGetTranscript_QueryShape(t *testing.T) {
	db := &fakeDynamo{queryOut: &dynamodb.QueryOutput{}}
	c := mustNewClient(t, db)
	turns, err := c.GetTranscript(context.Background(), "abc", 20)
	require.NoError(t, err)
	require.Empty(t, turns)
	require.Equal(t, "PK = :pk AND begins_with(SK, :prefix)", *db.lastQueryIn.KeyConditionExpression)
	require.False(t, *db.lastQueryIn.ScanIndexForward)
	require.Equal(t, int32(20), *db.lastQueryIn.Limit)
	require.Equal(t, "CONV#abc", db.lastQueryIn.ExpressionAttributeValues[":pk"].(*types.AttributeValueMemberS).Value)
}

func TestGetTranscript_NoLimit(t *testing.T) {
	db := &fakeDynamo{queryOut: &dynamodb.QueryOutput{}}
	c := mustNewClient(t, db)
	_, err := c.GetTranscript(context.Background(), "abc", 0)
	require.NoError(t, err)
	require.Nil(t, db.lastQueryIn.Limit)
}

func TestGetTranscript_ReordersDescendingResultsToChronological(t *testing.T) {
	older := domain.UserTurn("older", time.Date(2026, 2, 27, 11, 0, 0, 0, time.UTC))
	newer := domain.AssistantTurn(sampleBlocks(), time.Date(2026, 2, 27, 12, 0, 0, 0, time.UTC))
	db := &fakeDynamo{queryOut: &dynamodb.QueryOutput{Items: []map[string]types.AttributeValue{
		makeTurnItem(t, newer),
		makeTurnItem(t, older),
	}}}
	c := mustNewClient(t, db)

	turns, err := c.GetTranscript(context.Background(), "abc", 20)
	require.NoError(t, err)
	require.Len(t, turns, 2)
	require.Equal(t, "older", turns[0].Text)
	require.Equal(t, domain.RoleAssistant, turns[1].Role)
	require.Len(t, turns[1].Blocks, 3)
}

func TestGetTranscript_QueryError(t *testing.T) {
	db := &fakeDynamo{queryErr: errors.New("ResourceNotFoundException")}
	c := mustNewClient(t, db)
	_, err := c.GetTranscript(context.Background(), "abc", 20)
	require.Error(t, err)
	require.Contains(t, err.Error(), "GetTranscript")
}

func TestGetTranscript_MalformedItems(t *testing.T) {
	cases := map[string]map[string]types.AttributeValue{
		"missing role": {
			"createdAt": &types.AttributeValueMemberS{Value: "2026-02-27T11:00:00Z"},
		},
		"bad timestamp": {
			"role":      &types.AttributeValueMemberS{Value: "user"},
			"createdAt": &types.AttributeValueMemberS{Value: "yesterday"},
		},
		"bad blocks": {
			"role":      &types.AttributeValueMemberS{Value: "assistant"},
			"createdAt": &types.AttributeValueMemberS{Value: "2026-02-27T11:00:00Z"},
			"blocks":    &types.AttributeValueMemberS{Value: "{not json"},
		},
		"role not a string": {
			"role":      &types.AttributeValueMemberN{Value: "1"},
			"createdAt": &types.AttributeValueMemberS{Value: "2026-02-27T11:00:00Z"},
		},
	}
	for name, item := range cases {
		t.Run(name, func(t *testing.T) {
			db := &fakeDynamo{queryOut: &dynamodb.QueryOutput{Items: []map[string]types.AttributeValue{item}}}
			c := mustNewClient(t, db)
			_, err := c.GetTranscript(context.Background(), "abc", 20)
			require.Error(t, err)
			require.Contains(t, err.Error(), "GetTranscript unmarshal")
		})
	}
}

func TestMsgSK_SortsChronologically(t *testing.T) {
	a := msgSK(time.Date(2026, 2, 25, 10, 0, 5, 100_000_000, time.UTC), domain.RoleUser)
	b := msgSK(time.Date(2026, 2, 25, 10, 0, 5, 120_000_000, time.UTC), domain.RoleAssistant)
	require.Less(t, a, b)
}

func TestConvPK(t *testing.T) {
	require.Equal(t, "CONV#my-conv", convPK("my-conv"))
}

func TestNew_NilAPI(t *testing.T) {
	_, err := New(nil, "test-table")
	require.Error(t, err)
	require.Contains(t, err.Error(), "must not be nil")
}

func TestNew_EmptyTableName(t *testing.T) {
	_, err := New(&fakeDynamo{}, " ")
	require.Error(t, err)
	require.Contains(t, err.Error(), "must not be empty")
}
