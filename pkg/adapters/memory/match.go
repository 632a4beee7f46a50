package memory

import (
    "reflect"
    "strings"

    "github.com/walletera/sourced-repository/pkg/repository"

    "go.mongodb.org/mongo-driver/v2/bson"
)

func matches(fields bson.M, filter repository.Filter) bool {
    if len(filter) == 0 {
        return true
    }
    for _, criteria := range filter {
        if matchesAll(fields, criteria) {
            return true
        }
    }
    return false
}

func matchesAll(fields bson.M, criteria repository.Criteria) bool {
    for _, condition := range criteria {
        if !matchesCondition(fields, condition) {
            return false
        }
    }
    return true
}

func matchesCondition(fields bson.M, condition repository.Condition) bool {
    value, present := fields[condition.Field]
    switch condition.Op {
    case repository.Eq:
        if !present {
            return condition.Value == nil
        }
        return equal(value, normalize(condition.Value))
    case repository.Gt:
        if !present {
            return false
        }
        c, ok := compare(value, normalize(condition.Value))
        return ok && c > 0
    case repository.In:
        candidates := reflect.ValueOf(condition.Value)
        if candidates.Kind() != reflect.Slice && candidates.Kind() != reflect.Array {
            return false
        }
        for i := 0; i < candidates.Len(); i++ {
            candidate := normalize(candidates.Index(i).Interface())
            if !present && candidate == nil {
                return true
            }
            if present && equal(value, candidate) {
                return true
            }
        }
    }
    return false
}

func sameKey(a, b bson.M, keys []string) bool {
    for _, key := range keys {
        va, okA := a[key]
        vb, okB := b[key]
        if okA != okB {
            return false
        }
        if okA && !equal(va, vb) {
            return false
        }
    }
    return true
}

// less orders documents by the sort fields. Missing fields sort first.
func less(a, b bson.M, sortFields []repository.SortField) bool {
    for _, sortField := range sortFields {
        va, okA := a[sortField.Field]
        vb, okB := b[sortField.Field]
        var c int
        switch {
        case !okA && !okB:
            c = 0
        case !okA:
            c = -1
        case !okB:
            c = 1
        default:
            c, _ = compare(va, vb)
        }
        if sortField.Descending {
            c = -c
        }
        if c != 0 {
            return c < 0
        }
    }
    return false
}

// normalize passes a query value through the bson codec so it has the same
// Go type as the decoded document values it is compared with.
func normalize(value any) any {
    if value == nil {
        return nil
    }
    b, err := bson.Marshal(bson.D{{Key: "v", Value: value}})
    if err != nil {
        return value
    }
    var m bson.M
    if err := bson.Unmarshal(b, &m); err != nil {
        return value
    }
    return m["v"]
}

func equal(a, b any) bool {
    if c, ok := compare(a, b); ok {
        return c == 0
    }
    return reflect.DeepEqual(a, b)
}

func compare(a, b any) (int, bool) {
    if fa, ok := toFloat(a); ok {
        fb, ok := toFloat(b)
        if !ok {
            return 0, false
        }
        switch {
        case fa < fb:
            return -1, true
        case fa > fb:
            return 1, true
        }
        return 0, true
    }
    switch va := a.(type) {
    case string:
        vb, ok := b.(string)
        if !ok {
            return 0, false
        }
        return strings.Compare(va, vb), true
    case bson.DateTime:
        vb, ok := b.(bson.DateTime)
        if !ok {
            return 0, false
        }
        switch {
        case va < vb:
            return -1, true
        case va > vb:
            return 1, true
        }
        return 0, true
    case bool:
        vb, ok := b.(bool)
        if !ok {
            return 0, false
        }
        switch {
        case va == vb:
            return 0, true
        case !va:
            return -1, true
        }
        return 1, true
    }
    return 0, false
}

func toFloat(value any) (float64, bool) {
    switch v := value.(type) {
    case int32:
        return float64(v), true
    case int64:
        return float64(v), true
    case int:
        return float64(v), true
    case float64:
        return v, true
    }
    return 0, false
}
