package store

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/Ridgeline-Capital/assethub/pkg/model"
)

// CRM directories. All four share the soft-delete convention: deactivation
// sets active = FALSE, rows are never dropped.

func directoryNotFound(entity string, id int64, err error) error {
	if errors.Is(err, pgx.ErrNoRows) {
		return fmt.Errorf("%s %d: %w", entity, id, err)
	}
	return fmt.Errorf("%s update failed: %w", entity, err)
}

// --- Brokers ---

func (s *HybridStore) ListBrokers(ctx context.Context) ([]model.Broker, error) {
	rows, err := s.PG.Query(ctx, `
		SELECT id, name, firm, email, phone, states, active, created_at
		FROM crm.broker
		ORDER BY name;
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var brokers []model.Broker
	for rows.Next() {
		var b model.Broker
		if err := rows.Scan(&b.ID, &b.Name, &b.Firm, &b.Email, &b.Phone, &b.States, &b.Active, &b.CreatedAt); err != nil {
			return nil, err
		}
		brokers = append(brokers, b)
	}
	return brokers, rows.Err()
}

func (s *HybridStore) CreateBroker(ctx context.Context, b *model.Broker) error {
	return s.PG.QueryRow(ctx, `
		INSERT INTO crm.broker (name, firm, email, phone, states, active, created_at)
		VALUES ($1, $2, $3, $4, $5, TRUE, NOW())
		RETURNING id, active, created_at;
	`, b.Name, b.Firm, b.Email, b.Phone, b.States).Scan(&b.ID, &b.Active, &b.CreatedAt)
}

func (s *HybridStore) UpdateBroker(ctx context.Context, b *model.Broker) error {
	err := s.PG.QueryRow(ctx, `
		UPDATE crm.broker
		SET name = $2, firm = $3, email = $4, phone = $5, states = $6
		WHERE id = $1
		RETURNING created_at, active;
	`, b.ID, b.Name, b.Firm, b.Email, b.Phone, b.States).Scan(&b.CreatedAt, &b.Active)
	if err != nil {
		return directoryNotFound("broker", b.ID, err)
	}
	return nil
}

func (s *HybridStore) DeactivateBroker(ctx context.Context, id int64) error {
	tag, err := s.PG.Exec(ctx, `UPDATE crm.broker SET active = FALSE WHERE id = $1;`, id)
	if err != nil {
		return fmt.Errorf("broker deactivate failed: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("broker %d: %w", id, pgx.ErrNoRows)
	}
	return nil
}

// --- Investors ---

func (s *HybridStore) ListInvestors(ctx context.Context) ([]model.Investor, error) {
	rows, err := s.PG.Query(ctx, `
		SELECT id, name, firm, email, phone, active, created_at
		FROM crm.investor
		ORDER BY name;
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var investors []model.Investor
	for rows.Next() {
		var i model.Investor
		if err := rows.Scan(&i.ID, &i.Name, &i.Firm, &i.Email, &i.Phone, &i.Active, &i.CreatedAt); err != nil {
			return nil, err
		}
		investors = append(investors, i)
	}
	return investors, rows.Err()
}

func (s *HybridStore) CreateInvestor(ctx context.Context, i *model.Investor) error {
	return s.PG.QueryRow(ctx, `
		INSERT INTO crm.investor (name, firm, email, phone, active, created_at)
		VALUES ($1, $2, $3, $4, TRUE, NOW())
		RETURNING id, active, created_at;
	`, i.Name, i.Firm, i.Email, i.Phone).Scan(&i.ID, &i.Active, &i.CreatedAt)
}

func (s *HybridStore) UpdateInvestor(ctx context.Context, i *model.Investor) error {
	err := s.PG.QueryRow(ctx, `
		UPDATE crm.investor
		SET name = $2, firm = $3, email = $4, phone = $5
		WHERE id = $1
		RETURNING created_at, active;
	`, i.ID, i.Name, i.Firm, i.Email, i.Phone).Scan(&i.CreatedAt, &i.Active)
	if err != nil {
		return directoryNotFound("investor", i.ID, err)
	}
	return nil
}

func (s *HybridStore) DeactivateInvestor(ctx context.Context, id int64) error {
	tag, err := s.PG.Exec(ctx, `UPDATE crm.investor SET active = FALSE WHERE id = $1;`, id)
	if err != nil {
		return fmt.Errorf("investor deactivate failed: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("investor %d: %w", id, pgx.ErrNoRows)
	}
	return nil
}

// --- Legal contacts ---

func (s *HybridStore) ListLegalContacts(ctx context.Context) ([]model.LegalContact, error) {
	rows, err := s.PG.Query(ctx, `
		SELECT id, name, firm, email, phone, state, specialty, active, created_at
		FROM crm.legal_contact
		ORDER BY state, name;
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var contacts []model.LegalContact
	for rows.Next() {
		var l model.LegalContact
		if err := rows.Scan(&l.ID, &l.Name, &l.Firm, &l.Email, &l.Phone, &l.State, &l.Specialty, &l.Active, &l.CreatedAt); err != nil {
			return nil, err
		}
		contacts = append(contacts, l)
	}
	return contacts, rows.Err()
}

func (s *HybridStore) CreateLegalContact(ctx context.Context, l *model.LegalContact) error {
	return s.PG.QueryRow(ctx, `
		INSERT INTO crm.legal_contact (name, firm, email, phone, state, specialty, active, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, TRUE, NOW())
		RETURNING id, active, created_at;
	`, l.Name, l.Firm, l.Email, l.Phone, l.State, l.Specialty).Scan(&l.ID, &l.Active, &l.CreatedAt)
}

func (s *HybridStore) UpdateLegalContact(ctx context.Context, l *model.LegalContact) error {
	err := s.PG.QueryRow(ctx, `
		UPDATE crm.legal_contact
		SET name = $2, firm = $3, email = $4, phone = $5, state = $6, specialty = $7
		WHERE id = $1
		RETURNING created_at, active;
	`, l.ID, l.Name, l.Firm, l.Email, l.Phone, l.State, l.Specialty).Scan(&l.CreatedAt, &l.Active)
	if err != nil {
		return directoryNotFound("legal contact", l.ID, err)
	}
	return nil
}

func (s *HybridStore) DeactivateLegalContact(ctx context.Context, id int64) error {
	tag, err := s.PG.Exec(ctx, `UPDATE crm.legal_contact SET active = FALSE WHERE id = $1;`, id)
	if err != nil {
		return fmt.Errorf("legal contact deactivate failed: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("legal contact %d: %w", id, pgx.ErrNoRows)
	}
	return nil
}

// --- Trading partners ---

func (s *HybridStore) ListTradingPartners(ctx context.Context) ([]model.TradingPartner, error) {
	rows, err := s.PG.Query(ctx, `
		SELECT id, name, firm, email, phone, side, active, created_at
		FROM crm.trading_partner
		ORDER BY name;
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var partners []model.TradingPartner
	for rows.Next() {
		var p model.TradingPartner
		if err := rows.Scan(&p.ID, &p.Name, &p.Firm, &p.Email, &p.Phone, &p.Side, &p.Active, &p.CreatedAt); err != nil {
			return nil, err
		}
		partners = append(partners, p)
	}
	return partners, rows.Err()
}

func (s *HybridStore) CreateTradingPartner(ctx context.Context, p *model.TradingPartner) error {
	return s.PG.QueryRow(ctx, `
		INSERT INTO crm.trading_partner (name, firm, email, phone, side, active, created_at)
		VALUES ($1, $2, $3, $4, $5, TRUE, NOW())
		RETURNING id, active, created_at;
	`, p.Name, p.Firm, p.Email, p.Phone, p.Side).Scan(&p.ID, &p.Active, &p.CreatedAt)
}

func (s *HybridStore) UpdateTradingPartner(ctx context.Context, p *model.TradingPartner) error {
	err := s.PG.QueryRow(ctx, `
		UPDATE crm.trading_partner
		SET name = $2, firm = $3, email = $4, phone = $5, side = $6
		WHERE id = $1
		RETURNING created_at, active;
	`, p.ID, p.Name, p.Firm, p.Email, p.Phone, p.Side).Scan(&p.CreatedAt, &p.Active)
	if err != nil {
		return directoryNotFound("trading partner", p.ID, err)
	}
	return nil
}

func (s *HybridStore) DeactivateTradingPartner(ctx context.Context, id int64) error {
	tag, err := s.PG.Exec(ctx, `UPDATE crm.trading_partner SET active = FALSE WHERE id = $1;`, id)
	if err != nil {
		return fmt.Errorf("trading partner deactivate failed: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("trading partner %d: %w", id, pgx.ErrNoRows)
	}
	return nil
}
