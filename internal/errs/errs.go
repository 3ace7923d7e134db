// Package errs defines the coded errors surfaced by the connection and
// credential layer. Every error carries enough context (cluster, profile,
// role ARN, resource) to be self-diagnosable and, where a known fix exists,
// a suggested remediation.
package errs

import (
	"errors"
	"fmt"
	"strings"
)

// Error codes.
const (
	CodeCredentialsNotFound     = "CREDENTIALS_NOT_FOUND"
	CodeCredentialsExpired      = "CREDENTIALS_EXPIRED"
	CodeRoleAssumptionFailed    = "ROLE_ASSUMPTION_FAILED"
	CodeProfileNotFound         = "PROFILE_NOT_FOUND"
	CodeInsufficientPermissions = "INSUFFICIENT_PERMISSIONS"
	CodeNoBrokersAvailable      = "NO_BROKERS_AVAILABLE"
	CodeBootstrapFetchFailed    = "BOOTSTRAP_FETCH_FAILED"
	CodeClusterUnreachable      = "CLUSTER_UNREACHABLE"
	CodeTokenGenerationFailed   = "TOKEN_GENERATION_FAILED"
	CodeInvalidClusterConfig    = "INVALID_CLUSTER_CONFIG"
	CodeTopicOrGroupNotFound    = "TOPIC_OR_GROUP_NOT_FOUND"
	CodeCoordinatorUnavailable  = "COORDINATOR_UNAVAILABLE"
	CodeGroupHasActiveMembers   = "GROUP_HAS_ACTIVE_MEMBERS"
)

// Error is a coded error with optional context fields and a remediation hint.
type Error struct {
	Code        string
	Message     string
	Cluster     string
	Profile     string
	RoleARN     string
	Resource    string
	Remediation string
	Err         error
}

func (e *Error) Error() string {
	var b strings.Builder
	fmt.Fprintf(&b, "[%s] %s", e.Code, e.Message)
	if e.Cluster != "" {
		fmt.Fprintf(&b, " (cluster: %s)", e.Cluster)
	}
	if e.Profile != "" {
		fmt.Fprintf(&b, " (profile: %s)", e.Profile)
	}
	if e.RoleARN != "" {
		fmt.Fprintf(&b, " (role: %s)", e.RoleARN)
	}
	if e.Resource != "" {
		fmt.Fprintf(&b, " (resource: %s)", e.Resource)
	}
	if e.Err != nil {
		fmt.Fprintf(&b, ": %v", e.Err)
	}
	if e.Remediation != "" {
		fmt.Fprintf(&b, " (remediation: %s)", e.Remediation)
	}
	return b.String()
}

func (e *Error) Unwrap() error {
	return e.Err
}

// New creates a coded error.
func New(code, message string) *Error {
	return &Error{Code: code, Message: message}
}

// Wrap creates a coded error wrapping an underlying cause.
func Wrap(err error, code, message string) *Error {
	return &Error{Code: code, Message: message, Err: err}
}

// WithCluster attaches a cluster name.
func (e *Error) WithCluster(name string) *Error {
	e.Cluster = name
	return e
}

// WithProfile attaches an AWS profile name.
func (e *Error) WithProfile(profile string) *Error {
	e.Profile = profile
	return e
}

// WithRole attaches an IAM role ARN.
func (e *Error) WithRole(arn string) *Error {
	e.RoleARN = arn
	return e
}

// WithResource attaches the affected resource name (topic, group, file path).
func (e *Error) WithResource(name string) *Error {
	e.Resource = name
	return e
}

// WithRemediation attaches a suggested fix shown to the user.
func (e *Error) WithRemediation(hint string) *Error {
	e.Remediation = hint
	return e
}

// Code extracts the error code from err's chain, or "" if err is not coded.
func Code(err error) string {
	var ce *Error
	if errors.As(err, &ce) {
		return ce.Code
	}
	return ""
}

// Is reports whether err carries the given code.
func Is(err error, code string) bool {
	return Code(err) == code
}

// ClassifyAWS maps an AWS SDK error onto the taxonomy by pattern-matching the
// error text. The control-plane SDK does not expose structured codes to this
// layer, so substring matching is the contract here.
func ClassifyAWS(err error, profile, roleARN string) *Error {
	if err == nil {
		return nil
	}
	msg := strings.ToLower(err.Error())
	switch {
	case strings.Contains(msg, "expiredtoken") || strings.Contains(msg, "token has expired") || strings.Contains(msg, "security token included in the request is expired"):
		hint := "refresh your AWS credentials (e.g. aws sso login)"
		if profile != "" {
			hint = fmt.Sprintf("refresh your AWS credentials (e.g. aws sso login --profile %s)", profile)
		}
		return Wrap(err, CodeCredentialsExpired, "AWS credentials have expired").
			WithProfile(profile).WithRemediation(hint)
	case strings.Contains(msg, "accessdenied") || strings.Contains(msg, "access denied") || strings.Contains(msg, "not authorized"):
		return Wrap(err, CodeInsufficientPermissions, "access denied by AWS").
			WithProfile(profile).WithRole(roleARN)
	case strings.Contains(msg, "assumerole") || strings.Contains(msg, "assume role"):
		return Wrap(err, CodeRoleAssumptionFailed, "failed to assume IAM role").
			WithProfile(profile).WithRole(roleARN).
			WithRemediation("verify the role trust policy allows your principal to assume it")
	case strings.Contains(msg, "could not find profile") || strings.Contains(msg, "failed to get shared config profile"):
		return Wrap(err, CodeProfileNotFound, "AWS profile not found").
			WithProfile(profile).
			WithRemediation("check ~/.aws/credentials and ~/.aws/config for the profile section")
	default:
		return nil
	}
}
