package mysql

import "loanpilot/pkg/store/mysql/model"

// Re-export types from model package so repository code can use them
// without the extra import.

type (
	// Database models
	Application = model.Application
	Prediction  = model.Prediction
	Release     = model.Release

	// Custom JSON types
	JSONMap         = model.JSONMap
	JSONStringArray = model.JSONStringArray
)
