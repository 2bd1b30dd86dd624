package domain

import (
	"strings"

	apperror "gocontracts/internal/errors"
)

// ClientKind identifica a variante do cliente.
type ClientKind string

const (
	ClientKindPerson  ClientKind = "PERSON"
	ClientKindCompany ClientKind = "COMPANY"
)

// ClientDetails é a parte específica de cada variante. É fechada:
// apenas PersonDetails e CompanyDetails a implementam, e todo consumidor
// faz um type switch exaustivo sobre ela.
type ClientDetails interface {
	Kind() ClientKind
	isClientDetails()
}

// PersonDetails carrega o campo exclusivo de pessoa física.
type PersonDetails struct {
	BirthDate BirthDate
}

func (PersonDetails) Kind() ClientKind { return ClientKindPerson }
func (PersonDetails) isClientDetails() {}

// CompanyDetails carrega o campo exclusivo de pessoa jurídica.
type CompanyDetails struct {
	Identifier CompanyIdentifier
}

func (CompanyDetails) Kind() ClientKind { return ClientKindCompany }
func (CompanyDetails) isClientDetails() {}

// Client é a raiz do agregado. É um valor imutável: toda alteração devolve
// um novo Client, que o chamador persiste.
type Client struct {
	id      string
	version int64
	name    ClientName
	email   Email
	phone   PhoneNumber
	details ClientDetails
}

// NewPerson cria uma pessoa ainda não persistida. Não verifica unicidade.
func NewPerson(name ClientName, email Email, phone PhoneNumber, birthDate BirthDate) (Client, error) {
	if birthDate.IsZero() {
		return Client{}, apperror.NewFieldValidationError(apperror.KindRequired, "birthDate", "a data de nascimento é obrigatória")
	}
	return newClient("", 0, name, email, phone, PersonDetails{BirthDate: birthDate})
}

// NewCompany cria uma empresa ainda não persistida. Não verifica unicidade.
func NewCompany(name ClientName, email Email, phone PhoneNumber, identifier CompanyIdentifier) (Client, error) {
	if identifier.IsZero() {
		return Client{}, apperror.NewFieldValidationError(apperror.KindRequired, "companyIdentifier", "o identificador da empresa é obrigatório")
	}
	return newClient("", 0, name, email, phone, CompanyDetails{Identifier: identifier})
}

// ReconstituteClient reconstrói um cliente persistido; exige identidade atribuída.
func ReconstituteClient(id string, version int64, name ClientName, email Email, phone PhoneNumber, details ClientDetails) (Client, error) {
	if strings.TrimSpace(id) == "" {
		return Client{}, apperror.NewFieldValidationError(apperror.KindMissingIdentity, "id", "a reconstituição exige um ID já atribuído")
	}
	switch d := details.(type) {
	case PersonDetails:
		if d.BirthDate.IsZero() {
			return Client{}, apperror.NewFieldValidationError(apperror.KindRequired, "birthDate", "a data de nascimento é obrigatória")
		}
	case CompanyDetails:
		if d.Identifier.IsZero() {
			return Client{}, apperror.NewFieldValidationError(apperror.KindRequired, "companyIdentifier", "o identificador da empresa é obrigatório")
		}
	default:
		return Client{}, apperror.NewFieldValidationError(apperror.KindRequired, "type", "tipo de cliente desconhecido")
	}
	return newClient(id, version, name, email, phone, details)
}

func newClient(id string, version int64, name ClientName, email Email, phone PhoneNumber, details ClientDetails) (Client, error) {
	if err := requireCommonFields(name, email, phone); err != nil {
		return Client{}, err
	}
	return Client{id: id, version: version, name: name, email: email, phone: phone, details: details}, nil
}

func requireCommonFields(name ClientName, email Email, phone PhoneNumber) error {
	switch {
	case name.IsZero():
		return apperror.NewFieldValidationError(apperror.KindRequired, "name", "o nome é obrigatório")
	case email.IsZero():
		return apperror.NewFieldValidationError(apperror.KindRequired, "email", "o e-mail é obrigatório")
	case phone.IsZero():
		return apperror.NewFieldValidationError(apperror.KindRequired, "phone", "o telefone é obrigatório")
	}
	return nil
}

func (c Client) ID() string             { return c.id }
func (c Client) Version() int64         { return c.version }
func (c Client) Name() ClientName       { return c.name }
func (c Client) Email() Email           { return c.email }
func (c Client) Phone() PhoneNumber     { return c.phone }
func (c Client) Details() ClientDetails { return c.details }
func (c Client) IsPersisted() bool      { return c.id != "" }
func (c Client) IsZero() bool           { return c.details == nil }

// Kind devolve a variante; "" para o valor zero.
func (c Client) Kind() ClientKind {
	if c.details == nil {
		return ""
	}
	return c.details.Kind()
}

// WithCommonFields substitui nome, e-mail e telefone; ID, versão e campo da variante são mantidos.
func (c Client) WithCommonFields(name ClientName, email Email, phone PhoneNumber) (Client, error) {
	if err := requireCommonFields(name, email, phone); err != nil {
		return Client{}, err
	}
	next := c
	next.name, next.email, next.phone = name, email, phone
	return next, nil
}

// CommonFieldsPatch descreve uma atualização parcial; campos nil ficam inalterados.
type CommonFieldsPatch struct {
	Name  *ClientName
	Email *Email
	Phone *PhoneNumber
}

// UpdatePartial aplica o patch e informa se algum campo mudou de fato.
// Um patch vazio é válido e devolve o mesmo estado.
func (c Client) UpdatePartial(patch CommonFieldsPatch) (Client, bool) {
	next := c
	if patch.Name != nil && !patch.Name.IsZero() {
		next.name = *patch.Name
	}
	if patch.Email != nil && !patch.Email.IsZero() {
		next.email = *patch.Email
	}
	if patch.Phone != nil && !patch.Phone.IsZero() {
		next.phone = *patch.Phone
	}
	return next, !next.SameCommonFields(c)
}

// SameCommonFields compara apenas os campos comuns.
func (c Client) SameCommonFields(other Client) bool {
	return c.name == other.name && c.email == other.email && c.phone == other.phone
}
