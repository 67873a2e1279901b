package content

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/banksodee/clubsync/internal/model"
)

var fixedNow = time.Date(2024, 8, 10, 12, 0, 0, 0, time.UTC)

func TestPrepareCreate(t *testing.T) {
	input := model.Document{"_type": "playerProfile", "playerName": "Jane Doe"}
	created := prepareCreate(input, fixedNow)

	assert.Len(t, created.ID(), 36)
	assert.NotEmpty(t, created["_rev"])
	assert.Equal(t, "2024-08-10T12:00:00Z", created["_createdAt"])
	assert.Equal(t, "Jane Doe", created["playerName"])
	assert.NotContains(t, input, "_id", "input is not mutated")

	kept := prepareCreate(model.Document{"_id": "fixed"}, fixedNow)
	assert.Equal(t, "fixed", kept.ID())
}

func TestPatchUpdate(t *testing.T) {
	update := patchUpdate(model.Document{
		"_id":        "ignored",
		"_type":      "ignored",
		"playerName": "Jane Doe",
	}, fixedNow)

	set, ok := update["$set"].(bson.M)
	if !assert.True(t, ok) {
		return
	}
	assert.Equal(t, "Jane Doe", set["playerName"])
	assert.NotContains(t, set, "_id")
	assert.NotContains(t, set, "_type")
	assert.NotEmpty(t, set["_rev"])
	assert.Equal(t, "2024-08-10T12:00:00Z", set["_updatedAt"])
}

func TestToDocument(t *testing.T) {
	raw := bson.M{
		"_id": "doc1",
		"profileImage": bson.M{
			"asset": bson.D{{Key: "url", Value: "https://img"}},
		},
		"personalFacts": bson.A{bson.M{"question": "Did you know?"}},
		"publishedAt":   primitive.NewDateTimeFromTime(fixedNow),
	}

	doc := toDocument(raw)

	assert.Equal(t, "https://img", doc.Nested("profileImage.asset.url"))
	facts, ok := doc["personalFacts"].([]interface{})
	assert.True(t, ok)
	assert.Equal(t, map[string]interface{}{"question": "Did you know?"}, facts[0])
	assert.Equal(t, "2024-08-10T12:00:00Z", doc["publishedAt"])
}
