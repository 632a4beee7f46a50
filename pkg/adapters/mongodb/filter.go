package mongodb

import (
    "github.com/walletera/sourced-repository/pkg/repository"

    "go.mongodb.org/mongo-driver/v2/bson"
)

// filterDocument translates a repository filter into a MongoDB query.
// A single criteria becomes a plain document, several become an $or.
func filterDocument(filter repository.Filter) bson.D {
    switch len(filter) {
    case 0:
        return bson.D{}
    case 1:
        return criteriaDocument(filter[0])
    }
    or := bson.A{}
    for _, criteria := range filter {
        or = append(or, criteriaDocument(criteria))
    }
    return bson.D{{Key: "$or", Value: or}}
}

func criteriaDocument(criteria repository.Criteria) bson.D {
    doc := bson.D{}
    for _, condition := range criteria {
        switch condition.Op {
        case repository.Gt:
            doc = append(doc, bson.E{Key: condition.Field, Value: bson.D{{Key: "$gt", Value: condition.Value}}})
        case repository.In:
            doc = append(doc, bson.E{Key: condition.Field, Value: bson.D{{Key: "$in", Value: condition.Value}}})
        default:
            doc = append(doc, bson.E{Key: condition.Field, Value: condition.Value})
        }
    }
    return doc
}

func sortDocument(sortFields []repository.SortField) bson.D {
    doc := bson.D{}
    for _, sortField := range sortFields {
        direction := 1
        if sortField.Descending {
            direction = -1
        }
        doc = append(doc, bson.E{Key: sortField.Field, Value: direction})
    }
    return doc
}
