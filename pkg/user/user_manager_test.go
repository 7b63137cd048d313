package user

import (
	"fmt"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func newPwFile(t *testing.T, content string) string {
	t.Helper()

	file := filepath.Join(t.TempDir(), "pwfile")
	require.NoError(t, os.WriteFile(file, []byte(content), pwFileMode), "seed password file.")
	return file
}

func TestUserManager_Init(t *testing.T) {
	tests := []struct {
		name          string
		fileContent   string
		expectError   bool
		expectedUsers map[string]string
	}{
		{
			name:          "empty file",
			fileContent:   "",
			expectedUsers: map[string]string{},
		},
		{
			name:        "valid users",
			fileContent: fmt.Sprintf("user1%s$2a$14$hash1\nuser2%s$2a$14$hash2\n", columnSep, columnSep),
			expectedUsers: map[string]string{
				"user1": "$2a$14$hash1",
				"user2": "$2a$14$hash2",
			},
		},
		{
			name:        "malformed line",
			fileContent: "user1\n",
			expectError: true,
		},
		{
			name:        "empty field",
			fileContent: fmt.Sprintf("%shash\n", columnSep),
			expectError: true,
		},
	}

	for _, td := range tests {
		t.Run(td.name, func(t *testing.T) {
			um := &UserManager{PwFile: newPwFile(t, td.fileContent)}
			err := um.Init()

			if td.expectError {
				require.ErrorIs(t, err, ErrPwFileContentFormat)
				return
			}

			require.NoError(t, err)
			require.Equal(t, td.expectedUsers, um.users)
		})
	}
}

func TestUserManager_CreateAndCheck(t *testing.T) {
	um := &UserManager{PwFile: newPwFile(t, "")}
	require.NoError(t, um.Init(), "init empty password file.")

	require.NoError(t, um.CreateUser(Credential{Username: "user", Password: "secret"}), "create user.")
	require.NoError(t, um.Init(), "reload password file.")

	require.True(t, um.CheckUserPassword("user", "secret"))
	require.False(t, um.CheckUserPassword("user", "wrong"))
	require.False(t, um.CheckUserPassword("nobody", "secret"))
}

func TestUserManager_CreateValidation(t *testing.T) {
	um := &UserManager{PwFile: newPwFile(t, "")}
	require.NoError(t, um.Init(), "init empty password file.")

	require.ErrorIs(t, um.CreateUser(Credential{Username: "1starts-with-digit", Password: "x"}), ErrInvalidUsername)
	require.ErrorIs(t, um.CreateUser(Credential{Username: "has space", Password: "x"}), ErrInvalidUsername)

	require.NoError(t, um.CreateUser(Credential{Username: "dup", Password: "x"}))
	require.NoError(t, um.Init(), "reload password file.")
	require.ErrorIs(t, um.CreateUser(Credential{Username: "dup", Password: "y"}), ErrUsernameExists)
}

func TestUserManager_Delete(t *testing.T) {
	um := &UserManager{PwFile: newPwFile(t, "")}
	require.NoError(t, um.Init(), "init empty password file.")

	require.NoError(t, um.CreateUser(Credential{Username: "gone", Password: "x"}))
	require.NoError(t, um.Init(), "reload password file.")
	require.True(t, um.CheckUserPassword("gone", "x"))

	require.NoError(t, um.DeleteUser("gone"), "delete user.")
	require.NoError(t, um.Init(), "reload password file.")
	require.False(t, um.CheckUserPassword("gone", "x"))

	require.NoError(t, um.DeleteUser("never-there"), "deleting a missing user is a no-op.")
}

func TestUserManager_Sessions(t *testing.T) {
	um := &UserManager{PwFile: newPwFile(t, "")}
	require.NoError(t, um.Init(), "init empty password file.")
	require.NoError(t, um.CreateUser(Credential{Username: "user", Password: "x"}))
	require.NoError(t, um.Init(), "reload password file.")

	require.True(t, um.SetAuthenticatedUser("user", "10.0.0.1"), "first session wins.")
	require.False(t, um.SetAuthenticatedUser("user", "10.0.0.2"), "second session refused.")
	require.True(t, um.CheckUserIP("user", "10.0.0.1"))
	require.False(t, um.CheckUserIP("user", "10.0.0.2"))

	um.UnsetAuthenticatedUser("user")
	require.True(t, um.SetAuthenticatedUser("user", "10.0.0.2"), "session free again.")

	require.False(t, um.SetAuthenticatedUser("nobody", "10.0.0.1"), "unknown user has no session.")
}
