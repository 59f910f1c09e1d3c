// Package kernel runs notebook cells for one user session. Cells are Go
// source evaluated by a yaegi interpreter against a guarded symbol table,
// so file exports, interactive input and process execution never reach the
// host directly.
package kernel

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"go/ast"
	"go/parser"
	"go/scanner"
	"go/token"
	"io"
	"reflect"
	"strings"
	"sync"
	"time"

	"github.com/traefik/yaegi/interp"
	"github.com/upb/governed-notebook/config"
	"github.com/upb/governed-notebook/internal/observability"
	"github.com/upb/governed-notebook/models"
	"github.com/upb/governed-notebook/services/dataaccess"
	"github.com/upb/governed-notebook/services/export"
	"github.com/upb/governed-notebook/services/tracer"
	"go.uber.org/zap"
)

// ErrSessionClosed is returned by Execute after Close
var ErrSessionClosed = errors.New("kernel session closed")

// Options configure a session
type Options struct {
	Session models.SessionContext

	// DataStore is the governed data store. Required.
	DataStore *config.DatabaseConfig

	// Sink receives one record per unit. Nil disables tracing.
	Sink              tracer.Appender
	AuditWriteTimeout time.Duration

	// Stdout, when set, receives cell output as it is written, in addition
	// to Result.Output.
	Stdout io.Writer

	Logger  *zap.Logger
	Metrics *observability.Metrics
}

// Result is the outcome of one unit
type Result struct {
	Value    any
	Output   string
	Duration time.Duration
	// Err is the unit's own failure, shown to the user. The session stays
	// usable.
	Err error
	// Record is the audit record, nil when tracing is disabled
	Record *models.ExecutionRecord
}

// Session is one user's interpreter with its guards
type Session struct {
	identity    models.SessionContext
	interceptor *export.Interceptor
	facade      *dataaccess.Facade
	tracer      *tracer.Tracer
	interp      *interp.Interpreter
	output      *cellOutput
	logger      *zap.Logger
	metrics     *observability.Metrics

	mu       sync.Mutex
	closed   bool
	imported map[string]bool

	unitMu sync.RWMutex
	unit   context.Context
}

// NewSession installs the export interceptor, opens the data facade, builds
// the guarded interpreter and, when a sink is given, registers the tracer.
func NewSession(opts Options) (*Session, error) {
	logger := opts.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	identity := models.NewSessionContext(opts.Session.Username, opts.Session.SessionName)

	s := &Session{
		identity: identity,
		output:   &cellOutput{live: opts.Stdout},
		logger:   observability.ForSession(logger, identity),
		metrics:  opts.Metrics,
		imported: make(map[string]bool),
		unit:     context.Background(),
	}

	s.interceptor = export.Install(identity, logger, opts.Metrics)

	facade, err := dataaccess.Open(opts.DataStore, dataaccess.Options{
		Session: identity,
		Guard:   s.interceptor,
		Logger:  logger,
		Metrics: opts.Metrics,
		Notices: s.output,
	})
	if err != nil {
		return nil, err
	}
	s.facade = facade

	s.interp = interp.New(interp.Options{
		Stdin:  s.interceptor.Input(),
		Stdout: s.output,
		Stderr: s.output,
	})
	if err := s.interp.Use(guardedSymbols(s.interceptor, &governedAPI{session: s})); err != nil {
		_ = facade.Close()
		return nil, fmt.Errorf("failed to load symbol table: %w", err)
	}

	if opts.Sink != nil {
		s.tracer = tracer.New(identity, opts.Sink, logger, opts.Metrics, opts.AuditWriteTimeout)
	}

	s.logger.Info("kernel session started", zap.Bool("tracing", s.tracer != nil))
	return s, nil
}

// Identity returns the session identity
func (s *Session) Identity() models.SessionContext {
	return s.identity
}

// Traced reports whether units are recorded
func (s *Session) Traced() bool {
	return s.tracer != nil
}

// Banner returns the welcome text for this session
func (s *Session) Banner() string {
	return Banner(s.identity, s.Traced())
}

// Execute runs one unit. Units never overlap. The returned error is only
// non-nil when the session itself cannot run code; the unit's own failure
// is in Result.Err. Cancelling ctx interrupts the unit, which is still
// recorded.
func (s *Session) Execute(ctx context.Context, code string) (*Result, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return nil, ErrSessionClosed
	}

	s.setUnitContext(ctx)
	defer s.setUnitContext(context.Background())

	var cycle *tracer.Cycle
	if s.tracer != nil {
		cycle = s.tracer.BeforeUnit(code)
	}

	start := time.Now()
	value, err := s.eval(ctx, code)
	result := &Result{
		Value:    value,
		Output:   s.output.take(),
		Duration: time.Since(start),
		Err:      err,
	}

	if s.tracer != nil {
		result.Record = s.tracer.AfterUnit(ctx, cycle, err)
	}

	status := models.ExecutionStatusSuccess
	if err != nil {
		status = models.ExecutionStatusError
	}
	s.metrics.RecordCell(status, result.Duration)
	s.logger.Debug("unit executed",
		zap.String("status", string(status)),
		zap.Duration("duration", result.Duration),
		zap.Error(err))

	return result, nil
}

// HealthCheck pings the governed data store
func (s *Session) HealthCheck(ctx context.Context) error {
	return s.facade.HealthCheck(ctx)
}

// Close releases the data store. Further Execute calls fail.
func (s *Session) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return nil
	}
	s.closed = true
	s.logger.Info("kernel session closed")
	return s.facade.Close()
}

func (s *Session) eval(ctx context.Context, code string) (any, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	imports, decls, body := splitUnit(code)
	for _, spec := range imports {
		if s.imported[spec] {
			continue
		}
		if _, err := s.interp.EvalWithContext(ctx, spec); err != nil {
			return nil, unitError(err)
		}
		s.imported[spec] = true
	}
	for _, decl := range decls {
		if _, err := s.interp.EvalWithContext(ctx, decl); err != nil {
			return nil, unitError(err)
		}
	}

	if strings.TrimSpace(body) == "" {
		return nil, nil
	}

	v, err := s.interp.EvalWithContext(ctx, body)
	if err != nil {
		return nil, unitError(err)
	}
	return displayValue(v)
}

func (s *Session) setUnitContext(ctx context.Context) {
	s.unitMu.Lock()
	s.unit = ctx
	s.unitMu.Unlock()
}

func (s *Session) unitContext() context.Context {
	s.unitMu.RLock()
	defer s.unitMu.RUnlock()
	return s.unit
}

// displayValue returns the unit's final expression. A final expression
// holding a non-nil error fails the unit.
func displayValue(v reflect.Value) (any, error) {
	if !v.IsValid() || !v.CanInterface() {
		return nil, nil
	}
	x := v.Interface()
	if err, ok := x.(error); ok && err != nil {
		return nil, err
	}
	return x, nil
}

// unitError unwraps an interpreter panic so a panicked error keeps its type
func unitError(err error) error {
	var p interp.Panic
	if errors.As(err, &p) {
		if perr, ok := p.Value.(error); ok {
			return perr
		}
		return fmt.Errorf("panic: %v", p.Value)
	}
	return err
}

// splitUnit separates the leading declarations of a unit from the
// statements that follow, so a cell may open with imports, types, vars or
// funcs and still end in statements or an expression. Each import comes
// back as its own declaration. Code that does not parse that way is left
// whole for the interpreter to report.
func splitUnit(code string) (imports, decls []string, body string) {
	const header = "package main\n"

	fset := token.NewFileSet()
	src := code
	f, err := parser.ParseFile(fset, "", header+src, parser.SkipObjectResolution)
	if err != nil {
		// the first error marks where statements begin
		var list scanner.ErrorList
		if !errors.As(err, &list) || len(list) == 0 {
			return nil, nil, code
		}
		cut := list[0].Pos.Offset - len(header)
		if cut <= 0 || cut > len(code) {
			return nil, nil, code
		}
		src = code[:cut]
		fset = token.NewFileSet()
		if f, err = parser.ParseFile(fset, "", header+src, parser.SkipObjectResolution); err != nil {
			return nil, nil, code
		}
	}
	if len(f.Decls) == 0 {
		return nil, nil, code
	}

	offset := func(pos token.Pos) int {
		return fset.Position(pos).Offset - len(header)
	}
	for _, imp := range f.Imports {
		spec := "import "
		if imp.Name != nil {
			spec += imp.Name.Name + " "
		}
		imports = append(imports, spec+imp.Path.Value)
	}
	for _, decl := range f.Decls {
		if gd, ok := decl.(*ast.GenDecl); ok && gd.Tok == token.IMPORT {
			continue
		}
		decls = append(decls, src[offset(decl.Pos()):offset(decl.End())])
	}
	return imports, decls, code[offset(f.Decls[len(f.Decls)-1].End()):]
}

// cellOutput collects what a unit writes
type cellOutput struct {
	mu   sync.Mutex
	buf  bytes.Buffer
	live io.Writer
}

func (o *cellOutput) Write(p []byte) (int, error) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.buf.Write(p)
	if o.live != nil {
		_, _ = o.live.Write(p)
	}
	return len(p), nil
}

func (o *cellOutput) take() string {
	o.mu.Lock()
	defer o.mu.Unlock()
	out := o.buf.String()
	o.buf.Reset()
	return out
}
