package prompt

import "context"

// Static answers every prompt from fixed values and counts how often each
// question was asked. Use it for non-interactive runs and in tests.
type Static struct {
	// Usernames maps a cluster name to its login. User is the fallback.
	Usernames map[string]string
	User      string
	Secret    string
	Password  string

	// Err, when set, is returned by every prompt.
	Err error

	UsernameCalls  int
	ElevationCalls int
	LoginCalls     int
}

var _ Prompter = (*Static)(nil)

func (s *Static) Username(ctx context.Context, cluster, _ string) (string, error) {
	s.UsernameCalls++
	if err := s.answerable(ctx); err != nil {
		return "", err
	}
	if u, ok := s.Usernames[cluster]; ok && u != "" {
		return u, nil
	}
	if s.User == "" {
		return "", ErrEmptyInput
	}
	return s.User, nil
}

func (s *Static) ElevationSecret(ctx context.Context, _, _ string) (string, error) {
	s.ElevationCalls++
	if err := s.answerable(ctx); err != nil {
		return "", err
	}
	return s.Secret, nil
}

func (s *Static) LoginPassword(ctx context.Context, _, _ string) (string, error) {
	s.LoginCalls++
	if err := s.answerable(ctx); err != nil {
		return "", err
	}
	return s.Password, nil
}

func (s *Static) answerable(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	return s.Err
}
