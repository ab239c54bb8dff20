// Package page implements offset pagination over gorm queries.
package page

import (
	"fmt"
	"strconv"

	"gorm.io/gorm"
)

type Page[T any] struct {
	// Records are the records found for the page requested.
	Records []T
	// TotalRecords is the total number of records available.
	TotalRecords int
	// TotalPages is the total number of pages based on Size and TotalRecords.
	TotalPages int
	Pagination
}

type Pagination struct {
	// Number is the page number requested.
	Number int
	// Size is the page size requested.
	Size int
}

// Offset converts the one-based page number to a zero-based record offset.
func (p Pagination) Offset() int {
	return (p.Number - 1) * p.Size
}

func NewPagination(pageNumber, pageSize int) Pagination {
	pagination := Pagination{
		Number: 1,
		Size:   25,
	}

	if pageNumber > 0 {
		pagination.Number = pageNumber
	}

	if pageSize > 0 && pageSize <= 1000 {
		pagination.Size = pageSize
	}

	return pagination
}

// ParsePagination builds a Pagination from the "page" and "size" query
// parameters, falling back to defaults on anything unparsable.
func ParsePagination(pageStr, sizeStr string) Pagination {
	pageNumber, _ := strconv.Atoi(pageStr)
	pageSize, _ := strconv.Atoi(sizeStr)
	return NewPagination(pageNumber, pageSize)
}

// Paginate runs the query twice, once to count the total number of records
// and once to fetch the page requested.
func Paginate[T any](query *gorm.DB, pagination Pagination) (Page[T], error) {
	var total int64
	if err := query.Count(&total).Error; err != nil {
		return Page[T]{}, fmt.Errorf("could not count records: %w", err)
	}

	var records []T
	if err := query.Offset(pagination.Offset()).Limit(pagination.Size).Find(&records).Error; err != nil {
		return Page[T]{}, fmt.Errorf("could not find records: %w", err)
	}

	return Page[T]{
		Records:      records,
		TotalRecords: int(total),
		TotalPages:   (int(total) + pagination.Size - 1) / pagination.Size,
		Pagination:   pagination,
	}, nil
}
