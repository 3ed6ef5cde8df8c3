package mssql

import (
	"context"
	"fmt"
)

const schemaQuery = `
IF OBJECT_ID(N'dbo.TblQuotes', N'U') IS NULL
BEGIN
	CREATE TABLE dbo.TblQuotes (
		[UID]         BIGINT IDENTITY(1,1) PRIMARY KEY,
		[Source]      NVARCHAR(100)  NOT NULL,
		[SourceURL]   NVARCHAR(400)  NOT NULL,
		[Text]        NVARCHAR(MAX)  NOT NULL,
		[CheckSum]    CHAR(64)       NOT NULL,
		[SequenceNum] INT            NOT NULL,
		[FirstSeen]   DATETIME2      NOT NULL,
		[LastSeen]    DATETIME2      NOT NULL,
		CONSTRAINT UQ_TblQuotes_CheckSum UNIQUE ([CheckSum])
	);
	CREATE INDEX IX_TblQuotes_Source ON dbo.TblQuotes ([Source]);
END
`

// EnsureSchema создаёт таблицу цитат, если её ещё нет
func (r *Repository) EnsureSchema(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, r.commandTimeout)
	defer cancel()

	if _, err := r.db.ExecContext(ctx, schemaQuery); err != nil {
		return fmt.Errorf("failed to ensure schema: %w", err)
	}
	return nil
}
