package entity

import "errors"

var (
	// ErrReferenceNotFound is returned when an id is absent from the collection.
	ErrReferenceNotFound = errors.New("referenced entity not found")
	// ErrCyclicParent is returned when an entity would become its own ancestor.
	ErrCyclicParent = errors.New("cyclic parent reference")
	// ErrInsufficientSelection is returned when grouping resolves fewer than two members.
	ErrInsufficientSelection = errors.New("at least two entities are required")
	// ErrNotAGroup is returned when ungrouping an entity that is not a group.
	ErrNotAGroup = errors.New("entity is not a group")
	// ErrIntegrity reports corrupted membership data such as a dangling parentId.
	ErrIntegrity = errors.New("entity integrity violation")
	// ErrOutlineTooShort is returned when a drawn outline has too few points for its type.
	ErrOutlineTooShort = errors.New("outline has too few points")
)
