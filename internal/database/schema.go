package database

// Schema holds the MySQL DDL, applied in order.
var Schema = []string{
	`CREATE TABLE IF NOT EXISTS users (
		id BIGINT AUTO_INCREMENT PRIMARY KEY,
		email VARCHAR(255) NOT NULL UNIQUE,
		password_hash VARCHAR(255) NOT NULL,
		role ENUM('user', 'admin') NOT NULL DEFAULT 'user',
		status ENUM('active', 'suspended') NOT NULL DEFAULT 'active',
		created_at DATETIME NOT NULL,
		updated_at DATETIME NOT NULL
	)`,

	`CREATE TABLE IF NOT EXISTS user_credits (
		user_id BIGINT PRIMARY KEY,
		words_remaining BIGINT NOT NULL DEFAULT 0,
		updated_at DATETIME NOT NULL,
		CONSTRAINT chk_words_non_negative CHECK (words_remaining >= 0),
		FOREIGN KEY (user_id) REFERENCES users(id) ON DELETE CASCADE
	)`,

	`CREATE TABLE IF NOT EXISTS credit_transactions (
		id BIGINT AUTO_INCREMENT PRIMARY KEY,
		user_id BIGINT NOT NULL,
		type ENUM('consume', 'refund', 'purchase', 'grant', 'signup_bonus') NOT NULL,
		amount BIGINT NOT NULL,
		balance_after BIGINT NOT NULL,
		notes VARCHAR(255) NULL,
		created_at DATETIME NOT NULL,
		INDEX idx_credit_tx_user (user_id, created_at),
		FOREIGN KEY (user_id) REFERENCES users(id) ON DELETE CASCADE
	)`,

	`CREATE TABLE IF NOT EXISTS subscriptions (
		id BIGINT AUTO_INCREMENT PRIMARY KEY,
		user_id BIGINT NOT NULL UNIQUE,
		stripe_customer_id VARCHAR(255) NULL,
		stripe_subscription_id VARCHAR(255) NULL,
		plan_type VARCHAR(64) NOT NULL,
		words BIGINT NOT NULL DEFAULT 0,
		status VARCHAR(32) NOT NULL,
		current_period_end DATETIME NULL,
		created_at DATETIME NOT NULL,
		updated_at DATETIME NOT NULL,
		INDEX idx_subscriptions_stripe (stripe_subscription_id),
		FOREIGN KEY (user_id) REFERENCES users(id) ON DELETE CASCADE
	)`,

	`CREATE TABLE IF NOT EXISTS notifications (
		id BIGINT AUTO_INCREMENT PRIMARY KEY,
		user_id BIGINT NOT NULL,
		message VARCHAR(512) NOT NULL,
		link VARCHAR(255) NULL,
		is_read TINYINT(1) NOT NULL DEFAULT 0,
		created_at DATETIME NOT NULL,
		INDEX idx_notifications_user (user_id, is_read, created_at),
		FOREIGN KEY (user_id) REFERENCES users(id) ON DELETE CASCADE
	)`,
}
