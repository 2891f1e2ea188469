package ebay

import (
	"strconv"
	"strings"

	"github.com/raine/estate-pricer/internal/item"
)

// The Finding API JSON format wraps every field, scalar or not, in an array.

type findCompletedItemsEnvelope struct {
	Response []findingResponse `json:"findCompletedItemsResponse"`
}

type findingResponse struct {
	Ack              []string           `json:"ack"`
	ErrorMessage     []findingErrors    `json:"errorMessage"`
	SearchResult     []findingResult    `json:"searchResult"`
	PaginationOutput []findingPagination `json:"paginationOutput"`
}

type findingErrors struct {
	Error []struct {
		Message []string `json:"message"`
	} `json:"error"`
}

type findingResult struct {
	Item []findingItem `json:"item"`
}

type findingPagination struct {
	TotalEntries []string `json:"totalEntries"`
}

type findingItem struct {
	Title         []string `json:"title"`
	ViewItemURL   []string `json:"viewItemURL"`
	GalleryURL    []string `json:"galleryURL"`
	SellingStatus []struct {
		ConvertedCurrentPrice []findingAmount `json:"convertedCurrentPrice"`
	} `json:"sellingStatus"`
	ListingInfo []struct {
		EndTime     []string `json:"endTime"`
		ListingType []string `json:"listingType"`
	} `json:"listingInfo"`
	Condition []struct {
		ConditionDisplayName []string `json:"conditionDisplayName"`
	} `json:"condition"`
}

type findingAmount struct {
	CurrencyID string `json:"@currencyId"`
	Value      string `json:"__value__"`
}

func first(values []string) string {
	if len(values) == 0 {
		return ""
	}
	return values[0]
}

func (r findingResponse) errorMessage() string {
	for _, e := range r.ErrorMessage {
		for _, inner := range e.Error {
			if msg := first(inner.Message); msg != "" {
				return msg
			}
		}
	}
	return "ebay request was not acknowledged"
}

func (r findingResponse) totalEntries() int {
	if len(r.PaginationOutput) == 0 {
		return 0
	}
	n, err := strconv.Atoi(first(r.PaginationOutput[0].TotalEntries))
	if err != nil {
		return 0
	}
	return n
}

// sales returns the priced results in the order the API returned them.
func (r findingResponse) sales() []item.Sale {
	var sales []item.Sale
	for _, result := range r.SearchResult {
		for _, it := range result.Item {
			sale, ok := it.sale()
			if ok {
				sales = append(sales, sale)
			}
		}
	}
	return sales
}

func (it findingItem) sale() (item.Sale, bool) {
	if len(it.SellingStatus) == 0 || len(it.SellingStatus[0].ConvertedCurrentPrice) == 0 {
		return item.Sale{}, false
	}
	amount := it.SellingStatus[0].ConvertedCurrentPrice[0]
	price, err := strconv.ParseFloat(strings.TrimSpace(amount.Value), 64)
	if err != nil || price <= 0 {
		return item.Sale{}, false
	}

	sale := item.Sale{
		Title:    first(it.Title),
		Price:    price,
		Currency: amount.CurrencyID,
		URL:      first(it.ViewItemURL),
		Image:    first(it.GalleryURL),
	}
	if sale.Currency == "" {
		sale.Currency = "USD"
	}
	if len(it.ListingInfo) > 0 {
		sale.SoldDate = first(it.ListingInfo[0].EndTime)
		sale.ListingType = first(it.ListingInfo[0].ListingType)
	}
	if len(it.Condition) > 0 {
		sale.Condition = first(it.Condition[0].ConditionDisplayName)
	}
	return sale, true
}
