package gomxf

import "github.com/go-stdlog/stdlog"

// Logger is an alias for stdlog.Logger, the logging seam used by IndexTable
// and IndexManager. Callers that want diagnostics wire in a concrete
// stdlog.Logger (e.g. stdlog.NewStd(os.Stdout)); the default is
// stdlog.Discard.
type Logger = stdlog.Logger

// Discard is the default no-op Logger.
var Discard = stdlog.Discard
