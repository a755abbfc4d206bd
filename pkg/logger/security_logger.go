package logger

import (
	"crypto/sha256"
	"fmt"
	"net/url"
	"regexp"
	"strings"
)

var (
	bearerPattern = regexp.MustCompile(`(?i)(bearer)\s+[A-Za-z0-9._\-]+`)
	secretPattern = regexp.MustCompile(`(?i)(token|key|secret)[=:]\s*[A-Za-z0-9._\-]+`)
)

// SecurityLogger logs configuration and request metadata without leaking the
// forecast API token.
type SecurityLogger struct {
	*Logger
}

func NewSecurityLogger(base *Logger) *SecurityLogger {
	if base == nil {
		base = GetLogger()
	}
	return &SecurityLogger{Logger: base}
}

// MaskToken returns a stable fingerprint of a credential, or "unset".
func (sl *SecurityLogger) MaskToken(token string) string {
	if token == "" {
		return "unset"
	}
	return "token#" + sl.GenerateHash(token)[:8]
}

// MaskAPIEndpoint keeps the host and replaces the path with a short hash.
func (sl *SecurityLogger) MaskAPIEndpoint(apiURL string) string {
	if apiURL == "" {
		return ""
	}

	parsed, err := url.Parse(apiURL)
	if err != nil || parsed.Host == "" {
		return "api-endpoint#" + sl.GenerateHash(apiURL)[:8]
	}
	return fmt.Sprintf("%s/api#%s", parsed.Host, sl.GenerateHash(apiURL)[:8])
}

// MaskSensitiveData masks values whose keys look like credentials or endpoints.
func (sl *SecurityLogger) MaskSensitiveData(data map[string]interface{}) map[string]interface{} {
	masked := make(map[string]interface{}, len(data))

	for key, value := range data {
		lowerKey := strings.ToLower(key)
		str, isString := value.(string)

		switch {
		case isString && (strings.Contains(lowerKey, "token") || strings.Contains(lowerKey, "secret")):
			masked[key] = sl.MaskToken(str)
		case isString && (strings.Contains(lowerKey, "endpoint") || strings.Contains(lowerKey, "url")):
			masked[key] = sl.MaskAPIEndpoint(str)
		default:
			masked[key] = value
		}
	}

	return masked
}

// MaskLogMessage strips bearer credentials and key=value secrets from free text.
func (sl *SecurityLogger) MaskLogMessage(message string) string {
	masked := bearerPattern.ReplaceAllString(message, "${1} ***")
	return secretPattern.ReplaceAllString(masked, "${1}=***")
}

func (sl *SecurityLogger) GenerateHash(data string) string {
	hash := sha256.Sum256([]byte(data))
	return fmt.Sprintf("%x", hash[:8])
}

func (sl *SecurityLogger) SafeInfo(msg string, fields map[string]interface{}) {
	if fields == nil {
		sl.Logger.Info(sl.MaskLogMessage(msg))
		return
	}
	sl.Logger.WithFields(sl.MaskSensitiveData(fields)).Info(sl.MaskLogMessage(msg))
}

func (sl *SecurityLogger) SafeWarn(msg string, fields map[string]interface{}) {
	if fields == nil {
		sl.Logger.Warn(sl.MaskLogMessage(msg))
		return
	}
	sl.Logger.WithFields(sl.MaskSensitiveData(fields)).Warn(sl.MaskLogMessage(msg))
}

func (sl *SecurityLogger) SafeError(msg string, err error, fields map[string]interface{}) {
	maskedFields := map[string]interface{}{
		"error": sl.MaskLogMessage(err.Error()),
	}
	for k, v := range sl.MaskSensitiveData(fields) {
		maskedFields[k] = v
	}
	sl.Logger.WithFields(maskedFields).Error(sl.MaskLogMessage(msg))
}

// GetSecurityLogger wraps the current global logger.
func GetSecurityLogger() *SecurityLogger {
	return NewSecurityLogger(GetLogger())
}
