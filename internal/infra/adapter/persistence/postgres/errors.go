package postgres

import "omninews-ingest/internal/domain/omniverr"

func alreadyExistsErr() error { return omniverr.AlreadyExists() }
