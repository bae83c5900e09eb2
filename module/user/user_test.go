package user

import (
	"context"
	"testing"

	usermodel "github.com/Anuragsahu418/EDUCHAT/module/user/model"
	"github.com/Anuragsahu418/EDUCHAT/tools/errs"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemDirectory(t *testing.T) {
	ctx := context.Background()
	d := NewMemDirectory(
		usermodel.User{ID: "b", FullName: "Zed", ProfilePic: "z.png"},
		usermodel.User{ID: "a", FullName: "Amy"},
	)
	d.Put(usermodel.User{ID: "c", FullName: "Kim", Role: usermodel.RoleAdmin})

	u, err := d.FindByID(ctx, "c")
	require.NoError(t, err)
	assert.True(t, u.Role.IsModerator())
	_, err = d.FindByID(ctx, "x")
	assert.ErrorIs(t, err, errs.ErrNotFound)

	sums, err := d.Summaries(ctx, []string{"b", "x"})
	require.NoError(t, err)
	assert.Equal(t, map[string]usermodel.Summary{"b": {ID: "b", FullName: "Zed", ProfilePic: "z.png"}}, sums)

	list, err := d.ListExcept(ctx, "a")
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, "Kim", list[0].FullName)
	assert.Equal(t, "Zed", list[1].FullName)
}

func TestParseRole(t *testing.T) {
	assert.Equal(t, usermodel.RoleTeacher, usermodel.ParseRole("teacher"))
	assert.Equal(t, usermodel.RoleStudent, usermodel.ParseRole("root"))
	assert.False(t, usermodel.RoleTeacher.IsModerator())
}
