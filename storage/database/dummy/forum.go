package dummydb

import (
	"context"
	"sort"

	"github.com/learnweb/moodleoverflow/core/forum"
)

type forumRepository struct {
	db *forumTable
}

var _ forum.Repository = (*forumRepository)(nil) // interface compliance check

func NewForumRepository(db *DB) forum.Repository {
	return &forumRepository{db: db.forum}
}

func (repo *forumRepository) CreateForum(ctx context.Context, f forum.Forum) (forum.Forum, error) {
	repo.db.Lock()
	defer repo.db.Unlock()

	repo.db.pk++
	f.ID = repo.db.pk
	repo.db.table[f.ID] = &f
	return f, nil
}

func (repo *forumRepository) GetForumByID(ctx context.Context, id int64) (forum.Forum, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	if f, ok := repo.db.table[id]; ok {
		return *f, nil
	}
	return forum.Forum{}, forum.ErrNotFound
}

func (repo *forumRepository) QueryForumsByCourse(ctx context.Context, courseID int64) ([]forum.Forum, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	var forums []forum.Forum
	for _, f := range repo.db.table {
		if f.CourseID == courseID {
			forums = append(forums, *f)
		}
	}
	sort.Slice(forums, func(i, j int) bool { return forums[i].ID < forums[j].ID })
	return forums, nil
}

func (repo *forumRepository) UpdateForum(ctx context.Context, f forum.Forum) (forum.Forum, error) {
	repo.db.Lock()
	defer repo.db.Unlock()

	if _, ok := repo.db.table[f.ID]; !ok {
		return forum.Forum{}, forum.ErrNotFound
	}
	repo.db.table[f.ID] = &f
	return f, nil
}
