package apiErrors

import (
	"net/http"

	jsoniter "github.com/json-iterator/go"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

// Códigos de erro da API
const (
	// Erros de autenticação (1000-1999)
	ErrInvalidCredentials     = "AUTH_001" // Credenciais inválidas
	ErrUserDisabled           = "AUTH_002" // Usuário desativado
	ErrUserNotFound           = "AUTH_003" // Usuário não encontrado
	ErrInvalidToken           = "AUTH_006" // Token inválido
	ErrExpiredToken           = "AUTH_007" // Token expirado
	ErrInsufficientPrivilege  = "AUTH_008" // Privilégios insuficientes
	ErrAuthenticationRequired = "AUTH_010" // Sessão ausente ou encerrada
	ErrSessionExpired         = "AUTH_011" // Sessão expirada por inatividade

	// Erros de validação (2000-2999)
	ErrInvalidRequest      = "VAL_001" // Requisição inválida
	ErrMissingRequiredData = "VAL_002" // Dados obrigatórios ausentes
	ErrInvalidFormat       = "VAL_003" // Formato de dados inválido
	ErrResourceNotFound    = "VAL_004" // Recurso inexistente (ex: página de dashboard)

	// Erros de dados (3000-3999)
	ErrDataLoad   = "DATA_001" // Falha ao carregar os extratos
	ErrDataExport = "DATA_002" // Falha ao gerar exportação ou gráfico

	// Erros do servidor (5000-5999)
	ErrInternalServer    = "SRV_001" // Erro interno do servidor
	ErrDatabaseOperation = "SRV_002" // Erro de operação de banco de dados
)

// Mapeamento de códigos de erro para status HTTP
var httpStatusMap = map[string]int{
	ErrInvalidCredentials:     http.StatusUnauthorized,
	ErrUserDisabled:           http.StatusForbidden,
	ErrUserNotFound:           http.StatusNotFound,
	ErrInvalidToken:           http.StatusUnauthorized,
	ErrExpiredToken:           http.StatusUnauthorized,
	ErrInsufficientPrivilege:  http.StatusForbidden,
	ErrAuthenticationRequired: http.StatusUnauthorized,
	ErrSessionExpired:         http.StatusUnauthorized,
	ErrInvalidRequest:         http.StatusBadRequest,
	ErrMissingRequiredData:    http.StatusBadRequest,
	ErrInvalidFormat:          http.StatusBadRequest,
	ErrResourceNotFound:       http.StatusNotFound,
	ErrDataLoad:               http.StatusServiceUnavailable,
	ErrDataExport:             http.StatusInternalServerError,
	ErrInternalServer:         http.StatusInternalServerError,
	ErrDatabaseOperation:      http.StatusInternalServerError,
}

// APIError representa um erro de API padronizado
type APIError struct {
	Code    string `json:"code"`              // Código de erro para o cliente
	Message string `json:"message,omitempty"` // Mensagem descritiva (opcional)
	Details any    `json:"details,omitempty"` // Detalhes adicionais (opcional)
}

// StatusFor retorna o status HTTP de um código; códigos desconhecidos viram 500
func StatusFor(code string) int {
	status, exists := httpStatusMap[code]
	if !exists {
		return http.StatusInternalServerError
	}
	return status
}

// WriteError escreve o erro padronizado para a resposta HTTP
func WriteError(w http.ResponseWriter, code string, message string, details any) {
	apiErr := APIError{
		Code:    code,
		Message: message,
		Details: details,
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(StatusFor(code))
	json.NewEncoder(w).Encode(apiErr)
}

// FromError cria um erro de API a partir de um erro Go
func FromError(err error, code string) APIError {
	if err == nil {
		return APIError{
			Code:    ErrInternalServer,
			Message: "Erro desconhecido",
		}
	}

	return APIError{
		Code:    code,
		Message: err.Error(),
	}
}
