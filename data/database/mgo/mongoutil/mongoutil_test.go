package mongoutil

import (
	"context"
	"errors"
	"testing"

	"github.com/Anuragsahu418/EDUCHAT/tools/errs"

	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/mongo"
)

func TestValidateAndSetDefaults_BuildsURI(t *testing.T) {
	c := &Config{Address: []string{"h1:27017", "h2:27017"}, Database: "educhat", Username: "u", Password: "p"}
	require.NoError(t, c.ValidateAndSetDefaults())
	require.Equal(t, defaultMaxPoolSize, c.MaxPoolSize)
	require.Equal(t, defaultMaxRetry, c.MaxRetry)
	require.Equal(t, "mongodb://u:p@h1:27017,h2:27017/educhat?authSource=educhat&maxPoolSize=100", c.Uri)
}

func TestValidateAndSetDefaults_Errors(t *testing.T) {
	require.Error(t, (&Config{Database: "x"}).ValidateAndSetDefaults())
	require.Error(t, (&Config{Uri: "mongodb://h"}).ValidateAndSetDefaults())
}

func TestShouldRetry(t *testing.T) {
	ctx := context.Background()
	require.False(t, shouldRetry(ctx, mongo.CommandError{Code: 18}))
	require.True(t, shouldRetry(ctx, mongo.CommandError{Code: 11600}))

	cancelled, cancel := context.WithCancel(ctx)
	cancel()
	require.False(t, shouldRetry(cancelled, mongo.CommandError{Code: 11600}))
}

func TestInsertErr(t *testing.T) {
	require.NoError(t, InsertErr(nil, "message", "m1"))

	dup := mongo.WriteException{WriteErrors: []mongo.WriteError{{Code: 11000, Message: "E11000 duplicate key"}}}
	require.True(t, IsDuplicate(dup))
	err := InsertErr(dup, "message", "m1")
	require.ErrorIs(t, err, errs.ErrDuplicate)
	require.Equal(t, 409, errs.HTTPStatus(err))

	err = InsertErr(errors.New("socket closed"), "message", "m1")
	require.ErrorIs(t, err, errs.ErrPersistence)
	require.False(t, IsDuplicate(errors.New("socket closed")))
}
