// Package inmemdb is the in-memory implementation of the store contract,
// used in demo mode and in tests. It mirrors the document layout: top-level
// records owning named sub-resource maps, with enrollment markers kept
// separately from the reference arrays just like the document store.
package inmemdb

import (
	"sync"

	"github.com/trezcool/darasa/core/course"
	"github.com/trezcool/darasa/core/student"
)

type DB struct {
	mutex    sync.RWMutex
	courses  map[string]*courseRecord
	students map[string]*studentRecord
}

type courseRecord struct {
	crs         course.Course // top-level fields + StudentIDs only
	assignments map[string]course.Assignment
	messages    map[string]course.Message
	enrollments map[string]struct{} // enrolled student IDs (markers)
}

type studentRecord struct {
	stu         student.Student // top-level fields only
	enrollments map[string]struct{} // enrolled course IDs (markers)
}

func Open() (*DB, error) {
	return &DB{
		courses:  make(map[string]*courseRecord),
		students: make(map[string]*studentRecord),
	}, nil
}
