package sqljob

import (
	"encoding/hex"
	"fmt"
	"sort"
	"strings"
	"time"
)

// DebugSQL renders query with every ":name" placeholder replaced by
// the literal value of args[name].  The result is for logs only and
// must never be executed.
func DebugSQL(query string, args map[string]interface{}) string {
	names := make([]string, 0, len(args))
	for k := range args {
		names = append(names, k)
	}
	// longest first so ":id" never eats the prefix of ":id_2"
	sort.Slice(names, func(a, b int) bool {
		if len(names[a]) != len(names[b]) {
			return len(names[a]) > len(names[b])
		}
		return names[a] < names[b]
	})

	for _, k := range names {
		query = strings.ReplaceAll(query, ":"+k, literal(args[k]))
	}
	return query
}

func literal(v interface{}) string {
	switch x := v.(type) {
	case nil:
		return "NULL"
	case string:
		return quote(x)
	case time.Time:
		return quote(x.Format("2006-01-02 15:04:05"))
	case []byte:
		return "X'" + hex.EncodeToString(x) + "'"
	case bool:
		if x {
			return "TRUE"
		}
		return "FALSE"
	default:
		return fmt.Sprint(x)
	}
}

func quote(s string) string {
	return "'" + strings.ReplaceAll(s, "'", "''") + "'"
}
