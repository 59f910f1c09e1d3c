package kernel

import (
	"maps"
	"reflect"

	"github.com/traefik/yaegi/interp"
	"github.com/traefik/yaegi/stdlib"
	"github.com/upb/governed-notebook/internal/frame"
	"github.com/upb/governed-notebook/internal/numeric"
	"github.com/upb/governed-notebook/models"
	"github.com/upb/governed-notebook/services/export"
)

// Symbol table keys, in yaegi's "import/path/pkgname" form
const (
	symOS       = "os/os"
	symIOUtil   = "io/ioutil/ioutil"
	symExec     = "os/exec/exec"
	symSQL      = "database/sql/sql"
	symDriver   = "database/sql/driver/driver"
	symGoverned = "governed/governed"
	symFrame    = "frame/frame"
	symNumeric  = "numeric/numeric"
)

// removedPackages are left out of the session symbol table. Governed
// queries are the only path to a database.
var removedPackages = map[string]bool{
	symExec:   true,
	symSQL:    true,
	symDriver: true,
}

// guardedSymbols builds the symbol table a session interprets against: the
// standard library without removedPackages, with the file-creating
// primitives routed through ic and os.Stdin removed, plus the governed,
// frame and numeric packages. stdlib.Symbols itself is never modified.
func guardedSymbols(ic *export.Interceptor, api *governedAPI) interp.Exports {
	table := make(interp.Exports, len(stdlib.Symbols)+3)
	for key, pkg := range stdlib.Symbols {
		if removedPackages[key] {
			continue
		}
		table[key] = pkg
	}

	if pkg, ok := table[symOS]; ok {
		guarded := maps.Clone(pkg)
		guarded["OpenFile"] = reflect.ValueOf(ic.OpenFile)
		guarded["Create"] = reflect.ValueOf(ic.Create)
		guarded["WriteFile"] = reflect.ValueOf(ic.WriteFile)
		guarded["CreateTemp"] = reflect.ValueOf(ic.CreateTemp)
		guarded["Rename"] = reflect.ValueOf(ic.Rename)
		guarded["Link"] = reflect.ValueOf(ic.Link)
		guarded["Symlink"] = reflect.ValueOf(ic.Symlink)
		// interactive input is only reachable through fmt.Scan*, which
		// reads the denied session input
		delete(guarded, "Stdin")
		table[symOS] = guarded
	}

	if pkg, ok := table[symIOUtil]; ok {
		guarded := maps.Clone(pkg)
		guarded["WriteFile"] = reflect.ValueOf(ic.WriteFile)
		guarded["TempFile"] = reflect.ValueOf(ic.CreateTemp)
		table[symIOUtil] = guarded
	}

	table[symGoverned] = map[string]reflect.Value{
		"Query":        reflect.ValueOf(api.Query),
		"Customers":    reflect.ValueOf(api.Customers),
		"Transactions": reflect.ValueOf(api.Transactions),
		"Statistics":   reflect.ValueOf(api.Statistics),
		"Username":     reflect.ValueOf(api.Username),
	}

	table[symFrame] = map[string]reflect.Value{
		"Frame": reflect.ValueOf((*frame.Frame)(nil)),
	}

	table[symNumeric] = map[string]reflect.Value{
		"Array": reflect.ValueOf((*numeric.Array)(nil)),
		"New": reflect.ValueOf(func(values ...float64) *numeric.Array {
			return numeric.NewGuarded(ic, values...)
		}),
		"Save": reflect.ValueOf(func(path string, _ *numeric.Array) error {
			return ic.Deny(models.OperationNumericSave, path)
		}),
		"SaveText": reflect.ValueOf(func(path string, _ *numeric.Array) error {
			return ic.Deny(models.OperationNumericSaveText, path)
		}),
	}

	return table
}

// governedAPI is what cells see as package governed. Calls run under the
// context of the unit that makes them.
type governedAPI struct {
	session *Session
}

func (g *governedAPI) Query(statement string, args ...any) (*frame.Frame, error) {
	return g.session.facade.Query(g.session.unitContext(), statement, args...)
}

func (g *governedAPI) Customers(limit int) (*frame.Frame, error) {
	return g.session.facade.Customers(g.session.unitContext(), limit)
}

func (g *governedAPI) Transactions(limit int) (*frame.Frame, error) {
	return g.session.facade.Transactions(g.session.unitContext(), limit)
}

func (g *governedAPI) Statistics() (*frame.Frame, error) {
	return g.session.facade.Statistics(g.session.unitContext())
}

func (g *governedAPI) Username() string {
	return g.session.identity.Username
}
