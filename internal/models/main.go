package models

// ModelRegistry lists the gorm models migrated by --auto-migrate and the sqlite test fixtures.
var ModelRegistry = []interface{}{
	&Submission{},
}
