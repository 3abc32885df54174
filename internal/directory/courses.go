package directory

import (
	"context"
	"encoding/json"
	"sort"

	"github.com/dimitrije/medportal-api/internal/apperr"
	"github.com/dimitrije/medportal-api/internal/models"
)

// Courses is the typed view of the courses collection.
type Courses struct {
	store Store
}

func NewCourses(store Store) *Courses {
	return &Courses{store: store}
}

func (c *Courses) Get(ctx context.Context, id string) (*models.Course, error) {
	doc, err := c.store.Get(ctx, CollectionCourses, id)
	if err != nil {
		return nil, err
	}
	return decodeCourse(doc)
}

// List returns courses newest first.
func (c *Courses) List(ctx context.Context) ([]models.Course, error) {
	docs, err := c.store.List(ctx, CollectionCourses)
	if err != nil {
		return nil, err
	}

	courses := make([]models.Course, 0, len(docs))
	for i := range docs {
		course, err := decodeCourse(&docs[i])
		if err != nil {
			return nil, err
		}
		courses = append(courses, *course)
	}
	sort.SliceStable(courses, func(i, j int) bool {
		return courses[i].CreatedAt.After(courses[j].CreatedAt)
	})
	return courses, nil
}

func (c *Courses) Create(ctx context.Context, course *models.Course) (string, error) {
	return c.store.Create(ctx, CollectionCourses, course)
}

func (c *Courses) Update(ctx context.Context, id string, fields map[string]any) error {
	return c.store.Update(ctx, CollectionCourses, id, fields)
}

func decodeCourse(doc *Document) (*models.Course, error) {
	var course models.Course
	if err := json.Unmarshal(doc.Data, &course); err != nil {
		return nil, apperr.Upstream("directory.courses.decode", err)
	}
	course.ID = doc.ID
	if course.CreatedAt.IsZero() {
		course.CreatedAt = doc.CreatedAt
	}
	if course.Videos == nil {
		course.Videos = []string{}
	}
	if course.Materials == nil {
		course.Materials = []string{}
	}
	return &course, nil
}
