package mongo

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson"

	"yogaportal/pkg/storage"
)

func TestDeviceStateValidator_AllowsEveryStoredKey(t *testing.T) {
	schema, ok := DeviceStateValidator["$jsonSchema"].(bson.M)
	require.True(t, ok)
	props := schema["properties"].(bson.M)
	keys := props["key"].(bson.M)["enum"].([]string)

	for _, k := range []string{storage.KeyLocation, storage.KeyMockAuth, storage.KeyMockProfile, storage.KeySession, storage.KeySettings} {
		assert.Contains(t, keys, k)
	}
	assert.ElementsMatch(t, []string{"device_id", "key", "value", "updated_at"}, schema["required"])
}

func TestDeviceStateIndexes_DeviceKeyIsUnique(t *testing.T) {
	require.NotEmpty(t, DeviceStateIndexes)
	first := DeviceStateIndexes[0]

	assert.Equal(t, bson.D{{Key: "device_id", Value: 1}, {Key: "key", Value: 1}}, first.Keys)
	require.NotNil(t, first.Options)
	require.NotNil(t, first.Options.Unique)
	assert.True(t, *first.Options.Unique)
}
