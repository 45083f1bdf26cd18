package postgres

import (
	"context"
	"errors"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"

	"github.com/kirillkom/knowledge-retriever/internal/core/domain"
)

func newRepoWithMock(t *testing.T) (*CorpusRepository, sqlmock.Sqlmock, func()) {
	t.Helper()
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New() error = %v", err)
	}
	return &CorpusRepository{db: db}, mock, func() { _ = db.Close() }
}

func TestSaveDocumentUpsertsByContentKey(t *testing.T) {
	repo, mock, done := newRepoWithMock(t)
	defer done()

	doc := domain.Document{
		Content: "부가가치세 신고 기한 안내",
		Metadata: domain.DocumentMetadata{
			Title:  "vat.md",
			Source: "corpus/vat.md",
			Domain: "tax",
		},
	}

	mock.ExpectExec("INSERT INTO corpus_documents").
		WithArgs(doc.ContentKey(), doc.Content, "vat.md", "corpus/vat.md", "tax", sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 1))

	if err := repo.SaveDocument(context.Background(), doc); err != nil {
		t.Fatalf("SaveDocument() error = %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("expectations: %v", err)
	}
}

func TestListDocumentsScansMetadata(t *testing.T) {
	repo, mock, done := newRepoWithMock(t)
	defer done()

	rows := sqlmock.NewRows([]string{"content", "title", "source", "domain"}).
		AddRow("부가가치세 신고 기한 안내", "vat.md", "corpus/vat.md", "tax").
		AddRow("민법상 소멸시효 일반 원칙", nil, nil, "common")

	mock.ExpectQuery("SELECT content, title, source, domain").
		WillReturnRows(rows)

	docs, err := repo.ListDocuments(context.Background())
	if err != nil {
		t.Fatalf("ListDocuments() error = %v", err)
	}
	if len(docs) != 2 {
		t.Fatalf("len(docs) = %d, want 2", len(docs))
	}
	if docs[0].Metadata.Title != "vat.md" || docs[0].Metadata.Domain != "tax" {
		t.Errorf("metadata not scanned: %+v", docs[0].Metadata)
	}
	if docs[1].Metadata.Title != "" {
		t.Errorf("NULL title scanned as %q, want empty", docs[1].Metadata.Title)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("expectations: %v", err)
	}
}

func TestListDocumentsPropagatesQueryError(t *testing.T) {
	repo, mock, done := newRepoWithMock(t)
	defer done()

	mock.ExpectQuery("SELECT content, title, source, domain").
		WillReturnError(errors.New("connection refused"))

	if _, err := repo.ListDocuments(context.Background()); err == nil {
		t.Fatal("expected error")
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("expectations: %v", err)
	}
}
