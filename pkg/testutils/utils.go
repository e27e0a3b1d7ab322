package testutils

import (
	"crypto/rand"
	"math/big"
	"os"
	"time"

	"github.com/oiime/logrusbun"
	"github.com/sirupsen/logrus"
	"github.com/uptrace/bun"
	"github.com/uptrace/bun/extra/bundebug"
)

// VerboseSQLEnv makes SetUpDBLogging print every query with its arguments.
const VerboseSQLEnv = "EMOTIBOT_TEST_SQL_VERBOSE"

// SetUpDBLogging logs the queries of a test database through log at debug level, or
// verbosely to stdout when VerboseSQLEnv is set.
func SetUpDBLogging(db *bun.DB, log logrus.FieldLogger) {
	if os.Getenv(VerboseSQLEnv) != "" {
		db.AddQueryHook(bundebug.NewQueryHook(bundebug.WithVerbose(true)))
		return
	}
	db.AddQueryHook(logrusbun.NewQueryHook(logrusbun.QueryHookOptions{
		LogSlow:         time.Second,
		Logger:          log,
		QueryLevel:      logrus.DebugLevel,
		ErrorLevel:      logrus.ErrorLevel,
		SlowLevel:       logrus.WarnLevel,
		MessageTemplate: "{{.Operation}}[{{.Duration}}]: {{.Query}}",
		ErrorTemplate:   "{{.Operation}}[{{.Duration}}]: {{.Query}}: {{.Error}}",
	}))
}

// collection names must stay valid identifiers, so no punctuation here
const charset = "abcdefghijklmnopqrstuvwxyz0123456789"

// GenerateRandomString returns a random lowercase alphanumeric string.
func GenerateRandomString(length int) string {
	b := make([]byte, length)
	for i := range b {
		bigInt, _ := rand.Int(rand.Reader, big.NewInt(int64(len(charset))))
		b[i] = charset[bigInt.Int64()]
	}
	return string(b)
}
