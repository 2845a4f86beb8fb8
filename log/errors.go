/*
Copyright © 2025 Acronis International GmbH.

Released under MIT license.
*/

package log

import "errors"

var (
	errEmptyFilePath              = errors.New("file path is empty")
	errRotationMaxSizeTooSmall    = errors.New("rotation max size is too small")
	errRotationMaxBackupsTooSmall = errors.New("rotation max backups is too small")
)
