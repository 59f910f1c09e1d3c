package export

import (
	"io"
	"os"
	"strings"
	"sync"

	"github.com/upb/governed-notebook/internal/observability"
	"github.com/upb/governed-notebook/models"
	"github.com/upb/governed-notebook/services"
	"go.uber.org/zap"
)

// BlockedExtensions are the file suffixes a write-mode open may not target.
// Matching is a case-sensitive suffix match on the basename.
var BlockedExtensions = []string{
	".csv", ".xlsx", ".xls", ".json", ".parquet", ".pickle", ".pkl",
	".h5", ".hdf5", ".feather", ".xlsb",
}

// writeFlags are the open flags that request write, append or update access
const writeFlags = os.O_WRONLY | os.O_RDWR | os.O_APPEND | os.O_CREATE | os.O_TRUNC

var (
	registryOnce sync.Once
	registry     map[models.GovernedOperation]models.RejectionPolicy
)

// Registrations returns the process-wide guard registrations. The mapping is
// built on first use and never mutated afterwards.
func Registrations() map[models.GovernedOperation]models.RejectionPolicy {
	registryOnce.Do(func() {
		registry = map[models.GovernedOperation]models.RejectionPolicy{
			models.OperationFileOpenWrite:    {Mode: models.RejectByExtension, Primitive: "os.OpenFile"},
			models.OperationSerializeCSV:     {Mode: models.RejectAlways, Primitive: "Frame.ToCSV"},
			models.OperationSerializeJSON:    {Mode: models.RejectAlways, Primitive: "Frame.ToJSON"},
			models.OperationSerializeExcel:   {Mode: models.RejectAlways, Primitive: "Frame.ToExcel"},
			models.OperationSerializeParquet: {Mode: models.RejectAlways, Primitive: "Frame.ToParquet"},
			models.OperationSerializePickle:  {Mode: models.RejectAlways, Primitive: "Frame.ToPickle"},
			models.OperationNumericSave:      {Mode: models.RejectAlways, Primitive: "numeric.Save"},
			models.OperationNumericSaveText:  {Mode: models.RejectAlways, Primitive: "numeric.SaveText"},
			models.OperationInteractiveInput: {Mode: models.RejectAlways, Primitive: "os.Stdin"},
		}
	})
	return registry
}

// Interceptor enforces the export policy for one session. It is the only
// path through which session code reaches file-write and stdin primitives.
type Interceptor struct {
	session  models.SessionContext
	policies map[models.GovernedOperation]models.RejectionPolicy
	logger   *zap.Logger
	metrics  *observability.Metrics
}

// Install builds the session's interceptor over the shared registrations
func Install(session models.SessionContext, logger *zap.Logger, metrics *observability.Metrics) *Interceptor {
	if logger == nil {
		logger = zap.NewNop()
	}
	ic := &Interceptor{
		session:  session,
		policies: Registrations(),
		logger:   observability.ForSession(logger, session),
		metrics:  metrics,
	}
	ic.logger.Info("export interceptor installed", zap.Int("guards", len(ic.policies)))
	return ic
}

// Deny rejects an invocation of op. target is the filename for file guards
// and empty for method guards.
func (ic *Interceptor) Deny(op models.GovernedOperation, target string) error {
	primitive := ""
	if ic != nil {
		primitive = ic.policies[op].Primitive
		ic.logger.Warn("export attempt blocked",
			zap.String("operation", string(op)),
			zap.String("primitive", primitive),
			zap.String("target", target))
		ic.metrics.RecordExportDenied(op)
	}
	return services.NewExportDenied(string(op), target)
}

// CheckOpen returns ExportDenied when flag requests write access and the
// basename of name carries a blocked extension.
func (ic *Interceptor) CheckOpen(name string, flag int) error {
	if flag&writeFlags == 0 {
		return nil
	}
	filename := Basename(name)
	if HasBlockedExtension(filename) {
		return ic.Deny(models.OperationFileOpenWrite, filename)
	}
	return nil
}

// OpenFile is the guarded os.OpenFile
func (ic *Interceptor) OpenFile(name string, flag int, perm os.FileMode) (*os.File, error) {
	if err := ic.CheckOpen(name, flag); err != nil {
		return nil, err
	}
	return os.OpenFile(name, flag, perm)
}

// Create is the guarded os.Create
func (ic *Interceptor) Create(name string) (*os.File, error) {
	return ic.OpenFile(name, os.O_RDWR|os.O_CREATE|os.O_TRUNC, 0o666)
}

// WriteFile is the guarded os.WriteFile
func (ic *Interceptor) WriteFile(name string, data []byte, perm os.FileMode) error {
	if err := ic.CheckOpen(name, os.O_WRONLY|os.O_CREATE|os.O_TRUNC); err != nil {
		return err
	}
	return os.WriteFile(name, data, perm)
}

// CreateTemp is the guarded os.CreateTemp. The random part replaces the last
// "*" of pattern, so only the text after it can carry an extension.
func (ic *Interceptor) CreateTemp(dir, pattern string) (*os.File, error) {
	if i := strings.LastIndex(pattern, "*"); i >= 0 && HasBlockedExtension(pattern[i+1:]) {
		return nil, ic.Deny(models.OperationFileOpenWrite, Basename(pattern))
	}
	return os.CreateTemp(dir, pattern)
}

// CheckDestination returns ExportDenied when newname, the file a rename or
// link would create, carries a blocked extension.
func (ic *Interceptor) CheckDestination(newname string) error {
	filename := Basename(newname)
	if HasBlockedExtension(filename) {
		return ic.Deny(models.OperationFileOpenWrite, filename)
	}
	return nil
}

// Rename is the guarded os.Rename
func (ic *Interceptor) Rename(oldpath, newpath string) error {
	if err := ic.CheckDestination(newpath); err != nil {
		return err
	}
	return os.Rename(oldpath, newpath)
}

// Link is the guarded os.Link
func (ic *Interceptor) Link(oldname, newname string) error {
	if err := ic.CheckDestination(newname); err != nil {
		return err
	}
	return os.Link(oldname, newname)
}

// Symlink is the guarded os.Symlink
func (ic *Interceptor) Symlink(oldname, newname string) error {
	if err := ic.CheckDestination(newname); err != nil {
		return err
	}
	return os.Symlink(oldname, newname)
}

// Input returns the session's interactive input. Every read is denied.
func (ic *Interceptor) Input() io.Reader {
	return deniedInput{ic: ic}
}

type deniedInput struct {
	ic *Interceptor
}

func (d deniedInput) Read(p []byte) (int, error) {
	return 0, d.ic.Deny(models.OperationInteractiveInput, "")
}

// Basename strips everything up to the last forward slash and then
// everything up to the last backslash.
func Basename(path string) string {
	if i := strings.LastIndex(path, "/"); i >= 0 {
		path = path[i+1:]
	}
	if i := strings.LastIndex(path, `\`); i >= 0 {
		path = path[i+1:]
	}
	return path
}

// HasBlockedExtension reports whether filename ends in a blocked extension
func HasBlockedExtension(filename string) bool {
	for _, ext := range BlockedExtensions {
		if strings.HasSuffix(filename, ext) {
			return true
		}
	}
	return false
}
