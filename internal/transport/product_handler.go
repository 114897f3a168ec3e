package transport

import (
	"errors"
	"net/http"
	"time"

	"pharmaseek/internal/domain"
	"pharmaseek/internal/middleware"
	"pharmaseek/internal/repository"
	"pharmaseek/internal/service"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"
)

// ProductRequest represents a product create/update payload
type ProductRequest struct {
	Name           string   `json:"name" validate:"required"`
	Price          float64  `json:"price" validate:"gte=0"`
	Description    string   `json:"description"`
	Image          string   `json:"image" validate:"omitempty,url"`
	URL            string   `json:"url" validate:"omitempty,url"`
	BranchIDs      []string `json:"branchIds"`
	AlternativeIDs []string `json:"alternativeIds"`
}

// DeleteProductsRequest represents a batch delete payload
type DeleteProductsRequest struct {
	IDs []string `json:"ids" validate:"required,min=1"`
}

// ImportRequest represents a bulk import payload
type ImportRequest struct {
	Items []ProductRequest `json:"items" validate:"required,min=1,dive"`
}

// ProductResponse represents product data returned to clients
type ProductResponse struct {
	ID          string    `json:"id"`
	Name        string    `json:"name"`
	Price       float64   `json:"price"`
	Description string    `json:"description"`
	Image       string    `json:"image"`
	URL         string    `json:"url"`
	PharmacyID  string    `json:"pharmacyId"`
	CreatedAt   time.Time `json:"createdAt"`
	UpdatedAt   time.Time `json:"updatedAt"`
}

// AvailabilityResponse lists the branches a product is available at
type AvailabilityResponse struct {
	ProductID string   `json:"productId"`
	BranchIDs []string `json:"branchIds"`
}

// AlternativesResponse lists a product's substitute products
type AlternativesResponse struct {
	ProductID      string   `json:"productId"`
	AlternativeIDs []string `json:"alternativeIds"`
}

// ProductHandler handles HTTP requests for product operations
type ProductHandler struct {
	productService service.ProductService
	importService  service.ImportService
	logger         *zap.Logger
}

// NewProductHandler creates a new ProductHandler
func NewProductHandler(productService service.ProductService, importService service.ImportService, logger *zap.Logger) *ProductHandler {
	return &ProductHandler{
		productService: productService,
		importService:  importService,
		logger:         logger,
	}
}

// RegisterRoutes registers all product routes
func (h *ProductHandler) RegisterRoutes(r chi.Router) {
	r.Route("/api/products", func(r chi.Router) {
		r.Get("/", h.List)
		r.Post("/", h.Create)
		r.Delete("/", h.Delete)
		r.Post("/import", h.Import)
		r.Get("/{id}", h.Get)
		r.Put("/{id}", h.Update)
		r.Get("/{id}/availability", h.GetAvailability)
		r.Get("/{id}/alternatives", h.GetAlternatives)
	})
}

// Create handles product creation with its link sets
func (h *ProductHandler) Create(w http.ResponseWriter, r *http.Request) {
	req, ok := h.decodeProductRequest(w, r)
	if !ok {
		return
	}

	pharmacyID, ok := middleware.GetPharmacyID(r.Context())
	if !ok {
		middleware.RespondWithError(w, http.StatusBadRequest, "missing pharmacy scope")
		return
	}

	product, err := h.productService.AddProduct(r.Context(), productInput(req, pharmacyID), req.BranchIDs, req.AlternativeIDs)
	if err != nil {
		h.logger.Error("Product creation failed", zap.Error(err))
		middleware.RespondWithError(w, http.StatusInternalServerError, "failed to create product")
		return
	}

	middleware.RespondWithJSON(w, http.StatusCreated, productResponse(product))
}

// Update handles product modification including full link replacement
func (h *ProductHandler) Update(w http.ResponseWriter, r *http.Request) {
	productID := chi.URLParam(r, "id")

	req, ok := h.decodeProductRequest(w, r)
	if !ok {
		return
	}

	pharmacyID, ok := middleware.GetPharmacyID(r.Context())
	if !ok {
		middleware.RespondWithError(w, http.StatusBadRequest, "missing pharmacy scope")
		return
	}

	product, err := h.productService.ModifyProduct(r.Context(), productInput(req, pharmacyID), req.BranchIDs, req.AlternativeIDs, productID)
	if err != nil {
		if errors.Is(err, repository.ErrProductNotFound) {
			middleware.RespondWithError(w, http.StatusNotFound, "product not found")
			return
		}
		h.logger.Error("Product update failed", zap.Error(err), zap.String("product_id", productID))
		middleware.RespondWithError(w, http.StatusInternalServerError, "failed to update product")
		return
	}

	middleware.RespondWithJSON(w, http.StatusOK, productResponse(product))
}

// Delete handles batch product deletion with cascading link removal
func (h *ProductHandler) Delete(w http.ResponseWriter, r *http.Request) {
	var req DeleteProductsRequest
	if err := middleware.DecodeAndValidate(r, &req); err != nil {
		h.logger.Debug("Delete validation failed", zap.Error(err))
		if validationErrors := middleware.FormatValidationErrors(err); len(validationErrors) > 0 {
			middleware.RespondWithValidationErrors(w, validationErrors)
			return
		}
		middleware.RespondWithError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	if err := h.productService.DeleteProducts(r.Context(), req.IDs); err != nil {
		h.logger.Error("Product deletion failed", zap.Error(err))
		middleware.RespondWithError(w, http.StatusInternalServerError, err.Error())
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// Get handles single product retrieval
func (h *ProductHandler) Get(w http.ResponseWriter, r *http.Request) {
	productID := chi.URLParam(r, "id")

	product, err := h.productService.GetProduct(r.Context(), productID)
	if err != nil {
		if errors.Is(err, repository.ErrProductNotFound) {
			middleware.RespondWithError(w, http.StatusNotFound, "product not found")
			return
		}
		h.logger.Error("Product lookup failed", zap.Error(err), zap.String("product_id", productID))
		middleware.RespondWithError(w, http.StatusInternalServerError, "failed to get product")
		return
	}

	middleware.RespondWithJSON(w, http.StatusOK, productResponse(product))
}

// List handles product listing scoped to the request's pharmacy
func (h *ProductHandler) List(w http.ResponseWriter, r *http.Request) {
	pharmacyID, ok := middleware.GetPharmacyID(r.Context())
	if !ok {
		middleware.RespondWithError(w, http.StatusBadRequest, "missing pharmacy scope")
		return
	}

	products, err := h.productService.ListProducts(r.Context(), pharmacyID)
	if err != nil {
		h.logger.Error("Product listing failed", zap.Error(err))
		middleware.RespondWithError(w, http.StatusInternalServerError, "failed to list products")
		return
	}

	responses := make([]ProductResponse, 0, len(products))
	for _, product := range products {
		responses = append(responses, productResponse(product))
	}
	middleware.RespondWithJSON(w, http.StatusOK, responses)
}

// GetAvailability returns the branch IDs a product is available at
func (h *ProductHandler) GetAvailability(w http.ResponseWriter, r *http.Request) {
	productID := chi.URLParam(r, "id")

	branchIDs, err := h.productService.GetProductAvailability(r.Context(), productID)
	if err != nil {
		h.logger.Error("Availability lookup failed", zap.Error(err), zap.String("product_id", productID))
		middleware.RespondWithError(w, http.StatusInternalServerError, "failed to get product availability")
		return
	}

	middleware.RespondWithJSON(w, http.StatusOK, AvailabilityResponse{
		ProductID: productID,
		BranchIDs: branchIDs,
	})
}

// GetAlternatives returns the alternative product IDs owned by a product
func (h *ProductHandler) GetAlternatives(w http.ResponseWriter, r *http.Request) {
	productID := chi.URLParam(r, "id")

	alternativeIDs, err := h.productService.GetProductAlternatives(r.Context(), productID)
	if err != nil {
		h.logger.Error("Alternatives lookup failed", zap.Error(err), zap.String("product_id", productID))
		middleware.RespondWithError(w, http.StatusInternalServerError, "failed to get product alternatives")
		return
	}

	middleware.RespondWithJSON(w, http.StatusOK, AlternativesResponse{
		ProductID:      productID,
		AlternativeIDs: alternativeIDs,
	})
}

// Import handles bulk product loading
func (h *ProductHandler) Import(w http.ResponseWriter, r *http.Request) {
	var req ImportRequest
	if err := middleware.DecodeAndValidate(r, &req); err != nil {
		h.logger.Debug("Import validation failed", zap.Error(err))
		if validationErrors := middleware.FormatValidationErrors(err); len(validationErrors) > 0 {
			middleware.RespondWithValidationErrors(w, validationErrors)
			return
		}
		middleware.RespondWithError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	pharmacyID, ok := middleware.GetPharmacyID(r.Context())
	if !ok {
		middleware.RespondWithError(w, http.StatusBadRequest, "missing pharmacy scope")
		return
	}

	items := make([]service.ImportItem, 0, len(req.Items))
	for _, item := range req.Items {
		items = append(items, service.ImportItem{
			Product:        productInput(item, pharmacyID),
			BranchIDs:      item.BranchIDs,
			AlternativeIDs: item.AlternativeIDs,
		})
	}

	result, err := h.importService.ImportProducts(r.Context(), items)
	if err != nil {
		h.logger.Error("Import failed", zap.Error(err))
		middleware.RespondWithError(w, http.StatusInternalServerError, "failed to import products")
		return
	}

	middleware.RespondWithJSON(w, http.StatusOK, result)
}

func (h *ProductHandler) decodeProductRequest(w http.ResponseWriter, r *http.Request) (ProductRequest, bool) {
	var req ProductRequest
	if err := middleware.DecodeAndValidate(r, &req); err != nil {
		h.logger.Debug("Product validation failed", zap.Error(err))
		if validationErrors := middleware.FormatValidationErrors(err); len(validationErrors) > 0 {
			middleware.RespondWithValidationErrors(w, validationErrors)
			return req, false
		}
		middleware.RespondWithError(w, http.StatusBadRequest, "invalid request body")
		return req, false
	}
	return req, true
}

func productInput(req ProductRequest, pharmacyID string) service.ProductInput {
	return service.ProductInput{
		Name:        req.Name,
		Price:       req.Price,
		Description: req.Description,
		ImageURL:    req.Image,
		URL:         req.URL,
		PharmacyID:  pharmacyID,
	}
}

func productResponse(p *domain.Product) ProductResponse {
	return ProductResponse{
		ID:          p.ID,
		Name:        p.Name,
		Price:       p.Price,
		Description: p.Description,
		Image:       p.ImageURL,
		URL:         p.URL,
		PharmacyID:  p.PharmacyID,
		CreatedAt:   p.CreatedAt,
		UpdatedAt:   p.UpdatedAt,
	}
}
