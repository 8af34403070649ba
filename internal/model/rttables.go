package model

import (
	"bufio"
	"os"
	"path/filepath"
	"strconv"
	"strings"
)

// RTTable is a bidirectional map between a string name and a numeric id,
// used for routing tables, realms, scopes, protocols, and netdev groups
// (§3 "RT lookup tables"). Populated from the iproute2 database files in
// §6 if present; otherwise it behaves as an identity map over any decimal
// string passed to Parse.
type RTTable struct {
	byName  map[string]int
	byValue map[int]string
}

func newRTTable() *RTTable {
	return &RTTable{byName: make(map[string]int), byValue: make(map[int]string)}
}

// Parse translates a symbolic name (or a raw decimal string) to its
// numeric id. Unknown non-numeric names are reported via ok=false so the
// caller can decide the §4.2 "unknown values" policy for the table in
// question (pass through vs. drop-with-warning for "group").
func (t *RTTable) Parse(name string) (int, bool) {
	if v, ok := t.byName[name]; ok {
		return v, true
	}
	if n, err := strconv.Atoi(name); err == nil {
		return n, true
	}
	return 0, false
}

// Emit translates a numeric id back to its symbolic name, falling back to
// the decimal string if no name is registered.
func (t *RTTable) Emit(value int) string {
	if n, ok := t.byValue[value]; ok {
		return n
	}
	return strconv.Itoa(value)
}

func (t *RTTable) add(name string, value int) {
	t.byName[name] = value
	t.byValue[value] = name
}

// rtDBSearchPaths are the directories searched for each database file,
// in order, per §6 "Routing database files".
var rtDBSearchPaths = []string{
	"/usr/share/iproute2",
	"/usr/lib/iproute2",
	"/etc/iproute2",
}

// loadRTTable reads every "<decimal-id><ws><name>" line from name and
// name.d/*.conf across the search paths. Missing files are not an error
// (§6).
func loadRTTable(name string) *RTTable {
	t := newRTTable()
	for _, dir := range rtDBSearchPaths {
		parseRTFile(t, filepath.Join(dir, name))
	}
	confDir := filepath.Join("/etc/iproute2", name+".d")
	if entries, err := os.ReadDir(confDir); err == nil {
		for _, e := range entries {
			if !strings.HasSuffix(e.Name(), ".conf") {
				continue
			}
			parseRTFile(t, filepath.Join(confDir, e.Name()))
		}
	}
	return t
}

func parseRTFile(t *RTTable, path string) {
	f, err := os.Open(path)
	if err != nil {
		return // missing files are not an error (§6)
	}
	defer f.Close()

	sc := bufio.NewScanner(f)
	for sc.Scan() {
		line := strings.TrimSpace(sc.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		fields := strings.Fields(line)
		if len(fields) < 2 {
			continue
		}
		id, err := strconv.Atoi(fields[0])
		if err != nil {
			continue
		}
		t.add(fields[1], id)
	}
}

// RTTables bundles the five lookup tables named in §6: rt_tables,
// rt_realms, rt_scopes, rt_protos, group.
type RTTables struct {
	Tables RTTable
	Realms RTTable
	Scopes RTTable
	Protos RTTable
	Group  RTTable
}

// LoadRTTables reads all five database files, matching §6's search order,
// then adds the tables' compiled-in default names so lookups work even
// when no iproute2 database is installed; a compiled-in name overrides a
// file entry of the same name.
func LoadRTTables() *RTTables {
	tables := loadRTTable("rt_tables")
	tables.add("default", TableDefault)
	tables.add("main", TableMain)
	tables.add("local", LocalTable)
	tables.add("unspec", TableUnspec)

	protos := loadRTTable("rt_protos")
	protos.add("kernel", 2)
	protos.add("boot", 3)
	protos.add("static", 4)

	scopes := loadRTTable("rt_scopes")
	scopes.add("universe", 0)
	scopes.add("site", 200)
	scopes.add("link", 253)
	scopes.add("host", 254)
	scopes.add("nowhere", 255)

	return &RTTables{
		Tables: *tables,
		Realms: *loadRTTable("rt_realms"),
		Scopes: *scopes,
		Protos: *protos,
		Group:  *loadRTTable("group"),
	}
}

// ParseGroup resolves a netdev group name (§4.2 "netdev group | looked up
// via group RT map"). Unknown names are dropped with a warning by the
// caller; this just reports ok=false.
func (t *RTTables) ParseGroup(name string) (int, bool) {
	return t.Group.Parse(name)
}

// Well-known table ids that always exist regardless of rt_tables content.
const (
	TableUnspec  = 0
	TableDefault = 253
	TableMain    = 254
)
