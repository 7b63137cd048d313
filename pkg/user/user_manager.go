package user

import (
	"bufio"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"sync"

	"golang.org/x/crypto/bcrypt"
)

type UserManager struct {
	PwFile string
	users  map[string]string // keys: username / values: password hash

	// keys: username / values: ip address of the session holding the login
	sessions     map[string]string
	sessionMutex sync.Mutex
}

type Credential struct {
	Username string
	Password string
}

var (
	ErrInvalidUsername     = errors.New("username is invalid. it can contain letters, numbers and underscores but should start with a letter")
	ErrUsernameExists      = errors.New("username exists")
	ErrPwFileContentFormat = errors.New("something is wrong with the password file content format")
)

const (
	columnSep  = ":"
	hashCost   = 14
	pwFileMode = 0600
)

var usernameRegex = regexp.MustCompile(`^[a-zA-Z]\w*$`)

func (m *UserManager) Init() error {
	m.users = make(map[string]string)
	m.sessions = make(map[string]string)

	f, err := os.OpenFile(m.PwFile, os.O_CREATE|os.O_RDONLY, pwFileMode)
	if err != nil {
		return err
	}
	defer f.Close()

	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		line := scanner.Text()
		userFields := strings.Split(line, columnSep)
		if len(userFields) != 2 || userFields[0] == "" || userFields[1] == "" {
			subErr := fmt.Errorf("(len: %d, fields: %v)", len(userFields), userFields)
			return errors.Join(ErrPwFileContentFormat, subErr)
		}
		m.users[userFields[0]] = userFields[1]
	}

	return scanner.Err()
}

func (m *UserManager) CreateUser(cred Credential) error {
	if !usernameRegex.MatchString(cred.Username) {
		return ErrInvalidUsername
	}
	if _, ok := m.users[cred.Username]; ok {
		return ErrUsernameExists
	}

	hashPass, err := m.hashPassword(cred.Password)
	if err != nil {
		return err
	}

	f, err := os.OpenFile(m.PwFile, os.O_CREATE|os.O_APPEND|os.O_WRONLY, pwFileMode)
	if err != nil {
		return err
	}
	defer f.Close()

	_, err = f.WriteString(cred.Username + columnSep + hashPass + "\n")
	return err
}

func (m *UserManager) DeleteUser(username string) error {
	if _, ok := m.users[username]; !ok {
		return nil
	}
	delete(m.users, username)

	originalPw, err := os.OpenFile(m.PwFile, os.O_RDONLY, pwFileMode)
	if err != nil {
		return err
	}
	defer originalPw.Close()

	tmpPw, err := os.CreateTemp(filepath.Dir(m.PwFile), "pwfile_*.tmp")
	if err != nil {
		return err
	}
	defer tmpPw.Close()
	defer os.Remove(tmpPw.Name())

	scanner := bufio.NewScanner(originalPw)
	writer := bufio.NewWriter(tmpPw)

	for scanner.Scan() {
		line := scanner.Text()
		userFields := strings.Split(line, columnSep)

		if len(userFields) != 2 || userFields[0] == "" || userFields[1] == "" || userFields[0] == username {
			continue
		}

		if _, err = writer.WriteString(line + "\n"); err != nil {
			return err
		}
	}

	if err := scanner.Err(); err != nil {
		return err
	}
	if err := writer.Flush(); err != nil {
		return err
	}
	if err := os.Rename(tmpPw.Name(), m.PwFile); err != nil {
		return err
	}

	return os.Chmod(m.PwFile, pwFileMode)
}

func (m *UserManager) CheckUserPassword(username, password string) bool {
	if passwordHash, ok := m.users[username]; ok {
		return m.checkPasswordHash(password, passwordHash)
	}

	return false
}

func (m *UserManager) CheckUserIP(username, ipAddr string) bool {
	m.sessionMutex.Lock()
	defer m.sessionMutex.Unlock()

	userIP, ok := m.sessions[username]
	return ok && ipAddr == userIP
}

// SetAuthenticatedUser records username/ip as the active session.
// Returns false if the user does not exist or already holds a
// session elsewhere.
func (m *UserManager) SetAuthenticatedUser(username, ip string) bool {
	if _, ok := m.users[username]; !ok {
		return false
	}

	m.sessionMutex.Lock()
	defer m.sessionMutex.Unlock()

	if _, ok := m.sessions[username]; ok {
		return false
	}
	m.sessions[username] = ip
	return true
}

func (m *UserManager) UnsetAuthenticatedUser(username string) {
	m.sessionMutex.Lock()
	defer m.sessionMutex.Unlock()
	delete(m.sessions, username)
}

func (m *UserManager) hashPassword(password string) (string, error) {
	byts, err := bcrypt.GenerateFromPassword([]byte(password), hashCost)

	return string(byts), err
}

func (m *UserManager) checkPasswordHash(password, hash string) bool {
	err := bcrypt.CompareHashAndPassword([]byte(hash), []byte(password))
	return err == nil
}
