package model

import (
	"reflect"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestDeadLetterMessageColumns(t *testing.T) {
	typ := reflect.TypeOf(DeadLetterMessage{})
	var cols []string
	for i := 0; i < typ.NumField(); i++ {
		cols = append(cols, typ.Field(i).Tag.Get("db"))
	}
	assert.Equal(t, []string{
		"id", "subscription_name", "message_id", "user_id",
		"payload", "attributes", "status", "created_at",
	}, cols)
}
