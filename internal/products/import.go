package products

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"strings"

	"github.com/google/uuid"

	"github.com/shopmanager/shopmanager/internal/importer"
	"github.com/shopmanager/shopmanager/internal/lifecycle"
	"github.com/shopmanager/shopmanager/internal/shared"
)

// ImportAliases maps folded spreadsheet headers onto product fields.
var ImportAliases = importer.Aliases{
	"itemcode":     "itemCode",
	"code":         "itemCode",
	"sku":          "itemCode",
	"itemname":     "itemName",
	"name":         "itemName",
	"item":         "itemName",
	"category":     "category",
	"buyingprice":  "buyingPrice",
	"cost":         "buyingPrice",
	"costprice":    "buyingPrice",
	"sellingprice": "sellingPrice",
	"price":        "sellingPrice",
	"saleprice":    "sellingPrice",
	"stock":        "stock",
	"quantity":     "stock",
	"qty":          "stock",
	"supplier":     "supplierName",
	"suppliername": "supplierName",
}

type importRow struct {
	Product
	hasCategory bool
	hasSupplier bool
}

// Import reads an uploaded spreadsheet and creates or updates one product
// per row. Row failures are collected in the report; the upload log is
// written for every run that parsed.
func (s *Service) Import(ctx context.Context, filename string, r io.Reader, actor string) (ImportReport, error) {
	rows, err := importer.Read(filename, r, ImportAliases)
	if err != nil {
		return ImportReport{}, err
	}
	report := ImportReport{
		Filename: filename,
		Created:  []UploadAction{},
		Updated:  []UploadAction{},
		Errors:   []ImportError{},
	}
	for _, row := range rows {
		parsed, err := parseRow(row)
		if err != nil {
			report.Errors = append(report.Errors, ImportError{Row: row.Line, ItemCode: row.Get("itemCode"), Message: err.Error()})
			continue
		}
		action, err := s.importRow(ctx, parsed, actor)
		if err != nil {
			report.Errors = append(report.Errors, ImportError{Row: row.Line, ItemCode: parsed.ItemCode, Message: err.Error()})
			continue
		}
		if action.Action == "created" {
			report.Created = append(report.Created, action)
		} else {
			report.Updated = append(report.Updated, action)
		}
	}

	log := UploadLog{
		Filename:   filename,
		UploadedBy: actor,
		Products:   append(append([]UploadAction{}, report.Created...), report.Updated...),
	}
	if _, err := s.RecordUpload(ctx, log); err != nil {
		s.logger.Warn("import upload log not written", slog.String("filename", filename), slog.Any("error", err))
	}
	return report, nil
}

func parseRow(row importer.Row) (importRow, error) {
	var out importRow
	var err error
	out.ItemCode = row.Get("itemCode")
	out.ItemName = row.Get("itemName")
	out.Category = row.Get("category")
	out.SupplierName = row.Get("supplierName")
	out.hasCategory = out.Category != ""
	out.hasSupplier = out.SupplierName != ""
	if out.ItemCode == "" && out.ItemName == "" {
		return out, shared.NewValidationError("itemName", "item code or item name is required")
	}
	if out.BuyingPrice, err = importer.ParseAmount(row.Get("buyingPrice")); err != nil {
		return out, err
	}
	if out.SellingPrice, err = importer.ParseAmount(row.Get("sellingPrice")); err != nil {
		return out, err
	}
	if out.Stock, err = importer.ParseCount(row.Get("stock")); err != nil {
		return out, err
	}
	return out, nil
}

func (s *Service) importRow(ctx context.Context, row importRow, actor string) (UploadAction, error) {
	existing, err := s.match(ctx, row)
	switch {
	case errors.Is(err, shared.ErrNotFound):
		return s.importCreate(ctx, row, actor)
	case err != nil:
		return UploadAction{}, err
	}

	deltas := map[string]any{
		"buyingPrice":  row.BuyingPrice,
		"sellingPrice": row.SellingPrice,
		"stock":        row.Stock,
	}
	if row.hasCategory {
		deltas["category"] = row.Category
	}
	if row.hasSupplier {
		deltas["supplierName"] = row.SupplierName
	}
	rec, err := s.Update(ctx, existing.ID, deltas, actor)
	if err != nil {
		return UploadAction{}, err
	}
	if existing.Fields.Stock != row.Stock {
		if _, err := s.Annotate(ctx, rec.ID, actor, lifecycle.ChangeAddExpense, Schema.QuantityField, row.Stock); err != nil {
			return UploadAction{}, err
		}
	}
	return UploadAction{ItemCode: rec.Fields.ItemCode, ItemName: rec.Fields.ItemName, Action: "updated"}, nil
}

func (s *Service) match(ctx context.Context, row importRow) (lifecycle.Record[Product], error) {
	var (
		rec lifecycle.Record[Product]
		err error
	)
	if row.ItemCode != "" {
		rec, err = s.GetByKey(ctx, row.ItemCode)
	} else {
		rec, err = s.FindByField(ctx, "itemName", row.ItemName)
	}
	if err != nil {
		return rec, err
	}
	if rec.Deleted {
		return rec, shared.Invalidf("product %s is deleted", rec.Fields.ItemCode)
	}
	return rec, nil
}

func (s *Service) importCreate(ctx context.Context, row importRow, actor string) (UploadAction, error) {
	p := row.Product
	if p.ItemName == "" {
		return UploadAction{}, shared.NewValidationError("itemName", "is required")
	}
	if p.ItemCode == "" {
		p.ItemCode = "ITEM-" + strings.ToUpper(strings.ReplaceAll(uuid.NewString(), "-", "")[:8])
	}
	if p.Category == "" {
		p.Category = DefaultCategory
	}
	rec, err := s.Create(ctx, p, actor)
	if err != nil {
		return UploadAction{}, err
	}
	if p.Stock > 0 {
		if _, err := s.Annotate(ctx, rec.ID, actor, lifecycle.ChangeAddExpense, Schema.QuantityField, p.Stock); err != nil {
			return UploadAction{}, err
		}
	}
	return UploadAction{ItemCode: p.ItemCode, ItemName: p.ItemName, Action: "created"}, nil
}
