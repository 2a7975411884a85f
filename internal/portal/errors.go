package portal

import (
	"errors"
	"fmt"
	"strings"
)

type ErrorKind int

const (
	KindInternal ErrorKind = iota
	KindConfigurationIncomplete
	KindAuthenticationFailed
	KindNoDataFound
)

func (k ErrorKind) String() string {
	switch k {
	case KindConfigurationIncomplete:
		return "configuration_incomplete"
	case KindAuthenticationFailed:
		return "authentication_failed"
	case KindNoDataFound:
		return "no_data_found"
	default:
		return "internal"
	}
}

// AuthReason различает причины отказа во входе. Имеет смысл только для KindAuthenticationFailed.
type AuthReason int

const (
	ReasonNone AuthReason = iota
	ReasonInvalidCredentials
	ReasonGenericAuthFailure
)

func (r AuthReason) String() string {
	switch r {
	case ReasonInvalidCredentials:
		return "invalid_credentials"
	case ReasonGenericAuthFailure:
		return "authentication_failed"
	default:
		return ""
	}
}

var (
	ErrConfigurationIncomplete = errors.New("конфигурация портала неполная")
	ErrAuthenticationFailed    = errors.New("вход не выполнен")
	ErrNoDataFound             = errors.New("данные о посещаемости не найдены")
)

// FetchError - единственный вид ошибки, который выходит наружу из Fetch.
type FetchError struct {
	Kind    ErrorKind
	Reason  AuthReason
	Message string
	Err     error
}

func (e *FetchError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

func (e *FetchError) Unwrap() error {
	return e.Err
}

func (e *FetchError) Is(target error) bool {
	switch target {
	case ErrConfigurationIncomplete:
		return e.Kind == KindConfigurationIncomplete
	case ErrAuthenticationFailed:
		return e.Kind == KindAuthenticationFailed
	case ErrNoDataFound:
		return e.Kind == KindNoDataFound
	}
	return false
}

// Retryable: повтор имеет смысл только когда портал пустил, но данных не отдал.
func (e *FetchError) Retryable() bool {
	return e.Kind == KindNoDataFound
}

// KindOf возвращает вид ошибки. Всё, что не FetchError, считается внутренней ошибкой.
func KindOf(err error) ErrorKind {
	var fe *FetchError
	if errors.As(err, &fe) {
		return fe.Kind
	}
	return KindInternal
}

func configurationIncomplete(missing ...string) *FetchError {
	return &FetchError{
		Kind:    KindConfigurationIncomplete,
		Message: "missing " + strings.Join(missing, ", "),
	}
}

func authFailed(reason AuthReason) *FetchError {
	msg := "Authentication failed"
	if reason == ReasonInvalidCredentials {
		msg = "Invalid credentials"
	}
	return &FetchError{
		Kind:    KindAuthenticationFailed,
		Reason:  reason,
		Message: msg,
	}
}

func noDataFound() *FetchError {
	return &FetchError{
		Kind:    KindNoDataFound,
		Message: "No attendance data found. Make sure you're enrolled and have attendance records.",
	}
}

func internal(msg string, err error) *FetchError {
	return &FetchError{
		Kind:    KindInternal,
		Message: msg,
		Err:     err,
	}
}

// classifyLoginURL узнаёт отказ во входе по адресу, куда портал отправил после отправки формы.
func classifyLoginURL(rawURL string) (AuthReason, bool) {
	lower := strings.ToLower(rawURL)

	if strings.Contains(lower, "login") && strings.Contains(lower, "error") {
		return ReasonInvalidCredentials, true
	}

	compact := strings.NewReplacer("_", "", "-", "", "%20", "", " ", "").Replace(lower)
	if strings.Contains(compact, "authfailed") {
		return ReasonGenericAuthFailure, true
	}

	return ReasonNone, false
}
