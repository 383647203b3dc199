package main

import (
	domitem "github.com/kailas-cloud/souq/internal/domain/item"
	"github.com/kailas-cloud/souq/internal/domain/search/result"
)

type itemOutput struct {
	ID       string  `json:"id"`
	NameEN   string  `json:"name_en,omitempty"`
	NameAR   string  `json:"name_ar,omitempty"`
	Category string  `json:"category"`
	Price    float64 `json:"price"`
	Score    float64 `json:"score,omitempty"`
}

type searchOutputDoc struct {
	Language       string       `json:"language"`
	Results        []itemOutput `json:"results"`
	RelatedResults []itemOutput `json:"related_results"`
}

func toItemOutput(it *domitem.Item) itemOutput {
	return itemOutput{
		ID:       it.ID(),
		NameEN:   it.Name().English,
		NameAR:   it.Name().Arabic,
		Category: it.Category(),
		Price:    it.Price(),
	}
}

func searchOutput(res result.SearchResult) searchOutputDoc {
	out := searchOutputDoc{
		Language:       string(res.Language),
		Results:        make([]itemOutput, 0, len(res.Results)),
		RelatedResults: make([]itemOutput, 0, len(res.RelatedResults)),
	}
	for i := range res.Results {
		o := toItemOutput(&res.Results[i].Item)
		o.Score = res.Results[i].Score
		out.Results = append(out.Results, o)
	}
	for i := range res.RelatedResults {
		out.RelatedResults = append(out.RelatedResults, toItemOutput(&res.RelatedResults[i]))
	}
	return out
}
