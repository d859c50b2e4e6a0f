package postgres

// SQL-миграции встроены в код для упрощения деплоя.
// Новую миграцию добавляем в конец с новым номером — старые не меняем.

type migration struct {
	version int
	name    string
	sql     string
}

var migrations = []migration{
	{1, "members", migration001Members},
	{2, "inventory", migration002Inventory},
	{3, "ledger", migration003Ledger},
	{4, "world_info", migration004World},
	{5, "admin", migration005Admin},
}

var migration001Members = `
CREATE TABLE IF NOT EXISTS members (
    id BIGSERIAL PRIMARY KEY,
    user_id BIGINT UNIQUE NOT NULL,
    username VARCHAR(255),
    first_name VARCHAR(255) NOT NULL DEFAULT '',
    last_name VARCHAR(255),
    created_at TIMESTAMPTZ DEFAULT NOW(),
    updated_at TIMESTAMPTZ DEFAULT NOW()
);
CREATE INDEX IF NOT EXISTS idx_members_username ON members(LOWER(username));
`

var migration002Inventory = `
CREATE TABLE IF NOT EXISTS products (
    code VARCHAR(64) PRIMARY KEY,
    name VARCHAR(255) NOT NULL,
    price BIGINT NOT NULL CHECK (price >= 0),
    stock_count INTEGER NOT NULL DEFAULT 0 CHECK (stock_count >= 0),
    description TEXT NOT NULL DEFAULT '',
    created_at TIMESTAMPTZ DEFAULT NOW(),
    updated_at TIMESTAMPTZ DEFAULT NOW()
);
CREATE TABLE IF NOT EXISTS product_stock (
    id BIGSERIAL PRIMARY KEY,
    product_code VARCHAR(64) NOT NULL REFERENCES products(code) ON DELETE CASCADE,
    content TEXT NOT NULL,
    used BOOLEAN NOT NULL DEFAULT FALSE,
    used_by TEXT,
    used_at TIMESTAMPTZ,
    added_by TEXT NOT NULL,
    added_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
    source_file TEXT NOT NULL DEFAULT '',
    CONSTRAINT product_stock_used_consistent CHECK (
        (used AND used_by IS NOT NULL AND used_at IS NOT NULL)
        OR (NOT used AND used_by IS NULL AND used_at IS NULL)
    )
);
CREATE INDEX IF NOT EXISTS idx_product_stock_available
    ON product_stock(product_code, id) WHERE NOT used;
CREATE INDEX IF NOT EXISTS idx_product_stock_product ON product_stock(product_code);
`

var migration003Ledger = `
CREATE TABLE IF NOT EXISTS users (
    growid VARCHAR(64) PRIMARY KEY,
    balance_wl BIGINT NOT NULL DEFAULT 0 CHECK (balance_wl >= 0),
    balance_dl BIGINT NOT NULL DEFAULT 0 CHECK (balance_dl >= 0),
    balance_bgl BIGINT NOT NULL DEFAULT 0 CHECK (balance_bgl >= 0),
    created_at TIMESTAMPTZ DEFAULT NOW(),
    updated_at TIMESTAMPTZ DEFAULT NOW()
);
CREATE TABLE IF NOT EXISTS transaction_log (
    id BIGSERIAL PRIMARY KEY,
    growid VARCHAR(64) NOT NULL REFERENCES users(growid),
    amount BIGINT NOT NULL,
    currency VARCHAR(8),
    type VARCHAR(32) NOT NULL,
    details TEXT NOT NULL DEFAULT '',
    actor TEXT NOT NULL DEFAULT '',
    old_balance JSONB NOT NULL,
    new_balance JSONB NOT NULL,
    timestamp TIMESTAMPTZ NOT NULL DEFAULT NOW()
);
CREATE INDEX IF NOT EXISTS idx_transaction_log_growid ON transaction_log(growid, id DESC);

-- журнал только на добавление
CREATE OR REPLACE FUNCTION transaction_log_append_only() RETURNS trigger AS $$
BEGIN
    RAISE EXCEPTION 'transaction_log is append-only';
END;
$$ LANGUAGE plpgsql;
DROP TRIGGER IF EXISTS trg_transaction_log_append_only ON transaction_log;
CREATE TRIGGER trg_transaction_log_append_only
    BEFORE UPDATE OR DELETE ON transaction_log
    FOR EACH ROW EXECUTE FUNCTION transaction_log_append_only();
`

var migration004World = `
CREATE TABLE IF NOT EXISTS world_info (
    id INTEGER PRIMARY KEY DEFAULT 1 CHECK (id = 1),
    world VARCHAR(255) NOT NULL,
    owner VARCHAR(255) NOT NULL,
    bot VARCHAR(255) NOT NULL,
    updated_by TEXT NOT NULL DEFAULT '',
    updated_at TIMESTAMPTZ DEFAULT NOW()
);
`

var migration005Admin = `
CREATE TABLE IF NOT EXISTS admin_sessions (
    id BIGSERIAL PRIMARY KEY,
    user_id BIGINT NOT NULL,
    session_token VARCHAR(255) UNIQUE NOT NULL,
    authenticated_at TIMESTAMPTZ DEFAULT NOW(),
    expires_at TIMESTAMPTZ NOT NULL,
    is_active BOOLEAN DEFAULT TRUE
);
CREATE INDEX IF NOT EXISTS idx_admin_sessions_user_id ON admin_sessions(user_id);
CREATE TABLE IF NOT EXISTS admin_login_attempts (
    id BIGSERIAL PRIMARY KEY,
    user_id BIGINT NOT NULL,
    attempt_time TIMESTAMPTZ DEFAULT NOW(),
    success BOOLEAN DEFAULT FALSE
);
CREATE INDEX IF NOT EXISTS idx_admin_login_attempts_user ON admin_login_attempts(user_id, attempt_time DESC);
`
