package collections

import (
	"context"
	"fmt"
	"strings"

	"github.com/emiliofantozzi/cobra/internal/application/dto"
	"github.com/emiliofantozzi/cobra/internal/domain"
	"github.com/emiliofantozzi/cobra/internal/domain/entity"
	"github.com/emiliofantozzi/cobra/internal/domain/repository"
)

// CreateCustomerCompany da de alta una empresa cliente en la organización.
func (s *Service) CreateCustomerCompany(ctx context.Context, rc repository.RepositoryContext, in dto.CreateCustomerCompanyRequest) (*entity.CustomerCompany, error) {
	company, err := entity.NewCustomerCompany(entity.CustomerCompanyDraft{
		ID:             s.newID(),
		OrganizationID: rc.OrganizationID,
		Name:           in.Name,
		LegalName:      in.LegalName,
		TaxID:          in.TaxID,
		Status:         entity.CompanyStatus(in.Status),
		Industry:       in.Industry,
		Website:        in.Website,
		Notes:          in.Notes,
	}, s.clock.Now())
	if err != nil {
		return nil, err
	}
	err = s.tx.Run(ctx, func(r Repositories) error {
		return r.Companies.Create(ctx, rc, company)
	})
	if err != nil {
		return nil, fmt.Errorf("crear empresa: %w", err)
	}
	s.log.Info().Str("organization_id", rc.OrganizationID).Str("customer_company_id", company.ID).Msg("empresa cliente creada")
	return company, nil
}

// UpdateCustomerCompany aplica los campos presentes. Una empresa archivada no se edita.
func (s *Service) UpdateCustomerCompany(ctx context.Context, rc repository.RepositoryContext, id string, in dto.UpdateCustomerCompanyRequest) (*entity.CustomerCompany, error) {
	var out *entity.CustomerCompany
	err := s.tx.Run(ctx, func(r Repositories) error {
		company, err := loadCompany(ctx, r, rc, id)
		if err != nil {
			return err
		}
		if company.Status == entity.CompanyStatusArchived {
			return domain.ErrCompanyArchived
		}
		now := s.clock.Now()
		if in.Name != nil {
			if err := company.Rename(*in.Name, now); err != nil {
				return err
			}
		}
		if in.LegalName != nil {
			company.LegalName = strings.TrimSpace(*in.LegalName)
		}
		if in.TaxID != nil {
			taxID, err := entity.NormalizeTaxID(*in.TaxID)
			if err != nil {
				return err
			}
			company.TaxID = taxID
		}
		if in.Industry != nil {
			company.Industry = strings.TrimSpace(*in.Industry)
		}
		if in.Website != nil {
			company.Website = strings.TrimSpace(*in.Website)
		}
		if in.Notes != nil {
			company.Notes = *in.Notes
		}
		company.UpdatedAt = now
		if err := r.Companies.Update(ctx, rc, company); err != nil {
			return fmt.Errorf("actualizar empresa: %w", err)
		}
		out = company
		return nil
	})
	return out, err
}

// SetCustomerCompanyStatus ACTIVE <-> INACTIVE y -> ARCHIVED (terminal).
func (s *Service) SetCustomerCompanyStatus(ctx context.Context, rc repository.RepositoryContext, id, status string) (*entity.CustomerCompany, error) {
	var out *entity.CustomerCompany
	err := s.tx.Run(ctx, func(r Repositories) error {
		company, err := loadCompany(ctx, r, rc, id)
		if err != nil {
			return err
		}
		if err := company.SetStatus(entity.CompanyStatus(strings.ToUpper(status)), s.clock.Now()); err != nil {
			return err
		}
		if err := r.Companies.Update(ctx, rc, company); err != nil {
			return fmt.Errorf("actualizar empresa: %w", err)
		}
		out = company
		return nil
	})
	return out, err
}

// GetCustomerCompany devuelve la empresa con sus contactos.
func (s *Service) GetCustomerCompany(ctx context.Context, rc repository.RepositoryContext, id string) (*dto.CustomerCompanyDetailResponse, error) {
	company, err := loadCompany(ctx, s.repos, rc, id)
	if err != nil {
		return nil, err
	}
	contacts, err := s.repos.Contacts.ListByCompany(ctx, rc, id)
	if err != nil {
		return nil, fmt.Errorf("listar contactos: %w", err)
	}
	if contacts == nil {
		contacts = []*entity.Contact{}
	}
	return &dto.CustomerCompanyDetailResponse{Company: company, Contacts: contacts}, nil
}

// ListCustomerCompanies lista empresas con filtro por estado y búsqueda.
func (s *Service) ListCustomerCompanies(ctx context.Context, rc repository.RepositoryContext, in dto.ListCustomerCompaniesRequest) ([]*entity.CustomerCompany, error) {
	in.DefaultPage()
	list, err := s.repos.Companies.List(ctx, rc, repository.CustomerCompanyFilter{
		Status: entity.CompanyStatus(strings.ToUpper(in.Status)),
		Search: strings.TrimSpace(in.Search),
		Limit:  in.Limit,
		Offset: in.Offset,
	})
	if err != nil {
		return nil, fmt.Errorf("listar empresas: %w", err)
	}
	return list, nil
}

// CreateContact agrega un contacto. Si llega marcado como principal o de facturación,
// desmarca al anterior en la misma transacción.
func (s *Service) CreateContact(ctx context.Context, rc repository.RepositoryContext, in dto.CreateContactRequest) (*entity.Contact, error) {
	var out *entity.Contact
	err := s.tx.Run(ctx, func(r Repositories) error {
		company, err := loadCompany(ctx, r, rc, in.CustomerCompanyID)
		if err != nil {
			return err
		}
		if company.Status == entity.CompanyStatusArchived {
			return domain.ErrCompanyArchived
		}
		contact, err := entity.NewContact(entity.ContactDraft{
			ID:                s.newID(),
			OrganizationID:    rc.OrganizationID,
			CustomerCompanyID: company.ID,
			FirstName:         in.FirstName,
			LastName:          in.LastName,
			Email:             in.Email,
			PhoneNumber:       in.PhoneNumber,
			WhatsappNumber:    in.WhatsappNumber,
			Role:              in.Role,
			PreferredChannel:  entity.Channel(in.PreferredChannel),
			IsPrimary:         in.IsPrimary,
			IsBillingContact:  in.IsBillingContact,
		}, s.clock.Now())
		if err != nil {
			return err
		}
		if err := clearFlags(ctx, r, rc, contact); err != nil {
			return err
		}
		if err := r.Contacts.Create(ctx, rc, contact); err != nil {
			return fmt.Errorf("crear contacto: %w", err)
		}
		out = contact
		return nil
	})
	return out, err
}

// UpdateContact aplica los campos presentes. Los canales se validan juntos.
func (s *Service) UpdateContact(ctx context.Context, rc repository.RepositoryContext, id string, in dto.UpdateContactRequest) (*entity.Contact, error) {
	var out *entity.Contact
	err := s.tx.Run(ctx, func(r Repositories) error {
		contact, err := loadContact(ctx, r, rc, id)
		if err != nil {
			return err
		}
		if in.FirstName != nil {
			contact.FirstName = strings.TrimSpace(*in.FirstName)
		}
		if in.LastName != nil {
			contact.LastName = strings.TrimSpace(*in.LastName)
		}
		if in.Role != nil {
			contact.Role = strings.TrimSpace(*in.Role)
		}
		if in.Email != nil || in.PhoneNumber != nil || in.WhatsappNumber != nil {
			email, phone, whatsapp := contact.Email, contact.PhoneNumber, contact.WhatsappNumber
			if in.Email != nil {
				email = *in.Email
			}
			if in.PhoneNumber != nil {
				phone = *in.PhoneNumber
			}
			if in.WhatsappNumber != nil {
				whatsapp = *in.WhatsappNumber
			}
			if err := contact.SetChannels(email, phone, whatsapp); err != nil {
				return err
			}
		}
		preferred := contact.PreferredChannel
		if in.PreferredChannel != nil {
			preferred = entity.Channel(strings.ToUpper(*in.PreferredChannel))
		}
		if err := contact.SetPreferredChannel(preferred); err != nil {
			return err
		}
		if in.IsPrimary != nil {
			contact.IsPrimary = *in.IsPrimary
		}
		if in.IsBillingContact != nil {
			contact.IsBillingContact = *in.IsBillingContact
		}
		if err := clearFlags(ctx, r, rc, contact); err != nil {
			return err
		}
		contact.UpdatedAt = s.clock.Now()
		if err := r.Contacts.Update(ctx, rc, contact); err != nil {
			return fmt.Errorf("actualizar contacto: %w", err)
		}
		out = contact
		return nil
	})
	return out, err
}

// OptOutContact registra la baja del contacto en un canal.
func (s *Service) OptOutContact(ctx context.Context, rc repository.RepositoryContext, id, channel string) (*entity.Contact, error) {
	var out *entity.Contact
	err := s.tx.Run(ctx, func(r Repositories) error {
		contact, err := loadContact(ctx, r, rc, id)
		if err != nil {
			return err
		}
		if err := contact.OptOut(entity.Channel(strings.ToUpper(channel)), s.clock.Now()); err != nil {
			return err
		}
		if err := r.Contacts.Update(ctx, rc, contact); err != nil {
			return fmt.Errorf("actualizar contacto: %w", err)
		}
		out = contact
		return nil
	})
	if err == nil {
		s.log.Info().Str("organization_id", rc.OrganizationID).Str("contact_id", id).Str("channel", channel).Msg("baja de contacto registrada")
	}
	return out, err
}

// clearFlags desmarca el principal/facturación anterior de la empresa antes de guardar contact.
func clearFlags(ctx context.Context, r Repositories, rc repository.RepositoryContext, contact *entity.Contact) error {
	if contact.IsPrimary {
		if err := r.Contacts.ClearPrimary(ctx, rc, contact.CustomerCompanyID, contact.ID); err != nil {
			return fmt.Errorf("desmarcar contacto principal: %w", err)
		}
	}
	if contact.IsBillingContact {
		if err := r.Contacts.ClearBilling(ctx, rc, contact.CustomerCompanyID, contact.ID); err != nil {
			return fmt.Errorf("desmarcar contacto de facturación: %w", err)
		}
	}
	return nil
}
