package api

import (
	"go.opentelemetry.io/contrib/bridges/otelslog"
)

const scopeName = "github.com/koscakluka/receptionist/internal/api"

var logger = otelslog.NewLogger(scopeName)
