package pipeline

import (
	"go.mongodb.org/mongo-driver/bson"
)

// Stage is a single aggregation stage.
type Stage interface {
	Document() bson.D
}

type Match struct {
	Predicate bson.M
}

func (s Match) Document() bson.D {
	return bson.D{{Key: "$match", Value: s.Predicate}}
}

type Sort struct {
	Spec SortSpec
}

func (s Sort) Document() bson.D {
	return bson.D{{Key: "$sort", Value: s.Spec.D()}}
}

type Project struct {
	Spec bson.M
}

func (s Project) Document() bson.D {
	return bson.D{{Key: "$project", Value: s.Spec}}
}

type Group struct {
	Spec bson.D
}

func (s Group) Document() bson.D {
	return bson.D{{Key: "$group", Value: s.Spec}}
}

// Paginate fans out into a count branch and a skip/limit branch in one pass.
// Then holds stages applied to the page slice only.
type Paginate struct {
	Limit int64
	Page  int64
	Then  []Stage
}

func (s Paginate) Document() bson.D {
	limit, page := Normalize(s.Limit, s.Page)
	data := bson.A{bson.M{"$skip": (page - 1) * limit}, bson.M{"$limit": limit}}
	for _, st := range s.Then {
		if st != nil {
			data = append(data, st.Document())
		}
	}
	return bson.D{{Key: "$facet", Value: bson.M{
		"totalCount": bson.A{bson.M{"$count": "totalCount"}},
		"data":       data,
	}}}
}

type Unwind struct {
	Path string
}

func (s Unwind) Document() bson.D {
	return bson.D{{Key: "$unwind", Value: "$" + s.Path}}
}

type ReplaceRoot struct {
	Path string
}

func (s ReplaceRoot) Document() bson.D {
	return bson.D{{Key: "$replaceRoot", Value: bson.M{"newRoot": "$" + s.Path}}}
}

type Set struct {
	Fields bson.M
}

func (s Set) Document() bson.D {
	return bson.D{{Key: "$set", Value: s.Fields}}
}

type Limit struct {
	N int64
}

func (s Limit) Document() bson.D {
	return bson.D{{Key: "$limit", Value: s.N}}
}

type Lookup struct {
	From         string
	LocalField   string
	ForeignField string
	As           string
}

func (s Lookup) Document() bson.D {
	return bson.D{{Key: "$lookup", Value: bson.M{
		"from":         s.From,
		"localField":   s.LocalField,
		"foreignField": s.ForeignField,
		"as":           s.As,
	}}}
}

// Merge writes the pipeline output into another collection of the same
// database, replacing documents that share an _id.
type Merge struct {
	Into string
}

func (s Merge) Document() bson.D {
	return bson.D{{Key: "$merge", Value: bson.M{
		"into":           s.Into,
		"on":             "_id",
		"whenMatched":    "replace",
		"whenNotMatched": "insert",
	}}}
}
