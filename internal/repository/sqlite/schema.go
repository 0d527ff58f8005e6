package sqlite

import "github.com/maddiethegm/Home-Inventory-Controller/internal/repository"

const createUsersTable = `
CREATE TABLE IF NOT EXISTS Users (
	ID TEXT PRIMARY KEY,
	Username TEXT NOT NULL UNIQUE COLLATE NOCASE,
	PasswordHash TEXT NOT NULL DEFAULT '',
	Role TEXT NOT NULL,
	Email TEXT,
	DisplayName TEXT,
	AvatarURL TEXT,
	UITheme TEXT,
	Team TEXT,
	Bio TEXT,
	SQL_USER INTEGER NOT NULL DEFAULT 0
);
`

const createItemsTable = `
CREATE TABLE IF NOT EXISTS Items (
	ID TEXT PRIMARY KEY,
	Name TEXT NOT NULL,
	Description TEXT,
	Location TEXT,
	Bin TEXT,
	Quantity INTEGER NOT NULL DEFAULT 0,
	Image TEXT,
	Owner TEXT
);
`

const createLocationsTable = `
CREATE TABLE IF NOT EXISTS Locations (
	ID TEXT PRIMARY KEY,
	Name TEXT NOT NULL,
	Description TEXT,
	Building TEXT,
	Owner TEXT,
	Image TEXT
);
`

const createTransactionsTable = `
CREATE TABLE IF NOT EXISTS Transactions (
	ID TEXT PRIMARY KEY,
	Route TEXT NOT NULL,
	RequestPayload TEXT,
	AuthenticatedUsername TEXT NOT NULL,
	CreatedAt DATETIME NOT NULL
);
`

// tableSchema whitelists the columns a table accepts, in insert order.
type tableSchema struct {
	create  string
	columns []string
}

var schemas = map[repository.Table]tableSchema{
	repository.TableUsers: {
		create: createUsersTable,
		columns: []string{"ID", "Username", "PasswordHash", "Role", "Email", "DisplayName",
			"AvatarURL", "UITheme", "Team", "Bio", "SQL_USER"},
	},
	repository.TableItems: {
		create:  createItemsTable,
		columns: []string{"ID", "Name", "Description", "Location", "Bin", "Quantity", "Image", "Owner"},
	},
	repository.TableLocations: {
		create:  createLocationsTable,
		columns: []string{"ID", "Name", "Description", "Building", "Owner", "Image"},
	},
	repository.TableTransactions: {
		create:  createTransactionsTable,
		columns: []string{"ID", "Route", "RequestPayload", "AuthenticatedUsername", "CreatedAt"},
	},
}

var tableOrder = []repository.Table{
	repository.TableUsers,
	repository.TableItems,
	repository.TableLocations,
	repository.TableTransactions,
}

func (s tableSchema) has(column string) bool {
	for _, c := range s.columns {
		if c == column {
			return true
		}
	}
	return false
}
