package repository

const postgresSchema = `
	CREATE TABLE IF NOT EXISTS wallets (
		id TEXT PRIMARY KEY,
		customer_id TEXT NOT NULL,
		balance_pence BIGINT NOT NULL DEFAULT 0 CHECK (balance_pence >= 0)
	);
	CREATE TABLE IF NOT EXISTS transactions (
		id BIGSERIAL PRIMARY KEY,
		wallet_id TEXT NOT NULL REFERENCES wallets(id),
		amount_pence BIGINT NOT NULL CHECK (amount_pence <> 0),
		created TIMESTAMPTZ NOT NULL DEFAULT NOW()
	);
	CREATE INDEX IF NOT EXISTS idx_transactions_wallet_id ON transactions(wallet_id, id);
`

const sqliteSchema = `
	CREATE TABLE IF NOT EXISTS wallets (
		id TEXT PRIMARY KEY,
		customer_id TEXT NOT NULL,
		balance_pence INTEGER NOT NULL DEFAULT 0 CHECK (balance_pence >= 0)
	);
	CREATE TABLE IF NOT EXISTS transactions (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		wallet_id TEXT NOT NULL REFERENCES wallets(id),
		amount_pence INTEGER NOT NULL CHECK (amount_pence <> 0),
		created TEXT NOT NULL
	);
	CREATE INDEX IF NOT EXISTS idx_transactions_wallet_id ON transactions(wallet_id, id);
`
