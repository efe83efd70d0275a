package dummydb

import (
	"context"
	"sort"

	"github.com/learnweb/moodleoverflow/core/grade"
)

type gradeRepository struct {
	db *DB
}

var _ grade.Repository = (*gradeRepository)(nil) // interface compliance check

func NewGradeRepository(db *DB) grade.Repository {
	return &gradeRepository{db: db}
}

func (repo *gradeRepository) UpsertGrade(ctx context.Context, g *grade.Grade) error {
	repo.db.grade.Lock()
	defer repo.db.grade.Unlock()

	for _, stored := range repo.db.grade.table {
		if stored.UserID == g.UserID && stored.ForumID == g.ForumID {
			stored.Value = g.Value
			stored.UpdatedAt = g.UpdatedAt
			g.ID = stored.ID
			return nil
		}
	}

	repo.db.grade.pk++
	g.ID = repo.db.grade.pk
	cp := *g
	repo.db.grade.table[g.ID] = &cp
	return nil
}

func (repo *gradeRepository) GetGrade(ctx context.Context, userID, forumID int64) (grade.Grade, error) {
	repo.db.grade.RLock()
	defer repo.db.grade.RUnlock()

	for _, g := range repo.db.grade.table {
		if g.UserID == userID && g.ForumID == forumID {
			return *g, nil
		}
	}
	return grade.Grade{}, grade.ErrNotFound
}

func (repo *gradeRepository) QueryGradesByForum(ctx context.Context, forumID int64) ([]grade.Grade, error) {
	repo.db.grade.RLock()
	defer repo.db.grade.RUnlock()

	var grades []grade.Grade
	for _, g := range repo.db.grade.table {
		if g.ForumID == forumID {
			grades = append(grades, *g)
		}
	}
	sort.Slice(grades, func(i, j int) bool { return grades[i].UserID < grades[j].UserID })
	return grades, nil
}
