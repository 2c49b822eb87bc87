package service

import (
	"context"
	"fmt"
	"os"
	"sort"
	"strings"
	"time"

	"royale-meta/internal/config"
	"royale-meta/internal/constants"
	"royale-meta/internal/domain"
	"royale-meta/internal/repository"

	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"
)

// AnalyzerService aggregates the stored ladder battles into card, pair and
// deck statistics, persists them as a meta snapshot, and renders the text
// report. Read-side only: it never touches player or battle rows.
type AnalyzerService struct {
	cfg       *config.Config
	cards     *repository.CardRepository
	decks     *repository.DeckRepository
	battles   *repository.BattleRepository
	snapshots *repository.SnapshotRepository
	logger    zerolog.Logger
}

func NewAnalyzerService(
	cfg *config.Config,
	cards *repository.CardRepository,
	decks *repository.DeckRepository,
	battles *repository.BattleRepository,
	snapshots *repository.SnapshotRepository,
	logger zerolog.Logger,
) *AnalyzerService {
	return &AnalyzerService{
		cfg:       cfg,
		cards:     cards,
		decks:     decks,
		battles:   battles,
		snapshots: snapshots,
		logger:    logger,
	}
}

type cardAgg struct {
	uses int
	wins int
}

type pairKey struct {
	a, b int
}

type deckAgg struct {
	uses int
	wins int
}

// Analysis holds the aggregates of one analyzer pass.
type Analysis struct {
	SampleSize int
	CardMap    map[int]domain.Card
	CardUse    map[int]*cardAgg
	PairUse    map[pairKey]*cardAgg
	DeckUse    map[int64]*deckAgg
	DeckCards  map[int64][]int
}

func (s *AnalyzerService) Run(ctx context.Context) (string, error) {
	analysis, err := s.Aggregate(ctx)
	if err != nil {
		return "", err
	}
	if analysis.SampleSize == 0 {
		return "", fmt.Errorf("no ladder battles recorded, nothing to analyze")
	}

	snapshotID, err := s.persistSnapshot(ctx, analysis)
	if err != nil {
		return "", err
	}

	report := s.renderReport(analysis)
	if err := os.WriteFile(s.cfg.ReportPath, []byte(report), 0o644); err != nil {
		return "", fmt.Errorf("failed to write report: %w", err)
	}
	fmt.Print(report)

	s.logger.Info().
		Str("snapshot_id", snapshotID).
		Str("report", s.cfg.ReportPath).
		Int("battles", analysis.SampleSize).
		Msg("analysis complete")
	return snapshotID, nil
}

// Aggregate loads every stored ladder deck result and folds it into card,
// pair and deck counters. Card/pair and deck aggregation are independent, so
// they fan out on an errgroup over the shared immutable inputs.
func (s *AnalyzerService) Aggregate(ctx context.Context) (*Analysis, error) {
	cardMap, err := s.cards.GetAll(ctx)
	if err != nil {
		return nil, err
	}

	results, err := s.battles.LadderDeckResults(ctx)
	if err != nil {
		return nil, err
	}

	deckCards := make(map[int64][]int)
	for _, res := range results {
		if _, ok := deckCards[res.DeckID]; ok {
			continue
		}
		ids, err := s.decks.GetCards(ctx, res.DeckID)
		if err != nil {
			return nil, err
		}
		deckCards[res.DeckID] = ids
	}

	analysis := &Analysis{
		CardMap:   cardMap,
		CardUse:   make(map[int]*cardAgg),
		PairUse:   make(map[pairKey]*cardAgg),
		DeckUse:   make(map[int64]*deckAgg),
		DeckCards: deckCards,
	}

	g, _ := errgroup.WithContext(ctx)
	g.Go(func() error {
		for _, res := range results {
			ids := deckCards[res.DeckID]
			for i, a := range ids {
				agg := analysis.CardUse[a]
				if agg == nil {
					agg = &cardAgg{}
					analysis.CardUse[a] = agg
				}
				agg.uses++
				if res.Won {
					agg.wins++
				}
				for _, b := range ids[i+1:] {
					key := pairKey{a: a, b: b}
					pagg := analysis.PairUse[key]
					if pagg == nil {
						pagg = &cardAgg{}
						analysis.PairUse[key] = pagg
					}
					pagg.uses++
					if res.Won {
						pagg.wins++
					}
				}
			}
		}
		return nil
	})
	g.Go(func() error {
		for _, res := range results {
			agg := analysis.DeckUse[res.DeckID]
			if agg == nil {
				agg = &deckAgg{}
				analysis.DeckUse[res.DeckID] = agg
			}
			agg.uses++
			if res.Won {
				agg.wins++
			}
		}
		return nil
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}

	analysis.SampleSize = len(results)
	return analysis, nil
}

func (s *AnalyzerService) persistSnapshot(ctx context.Context, analysis *Analysis) (string, error) {
	cardStats := make([]domain.CardStat, 0, len(analysis.CardUse))
	for id, agg := range analysis.CardUse {
		if _, known := analysis.CardMap[id]; !known {
			continue
		}
		cardStats = append(cardStats, domain.CardStat{
			CardID:      id,
			GamesPlayed: agg.uses,
			GamesWon:    agg.wins,
			WinRate:     pct(agg.wins, agg.uses),
			PickRate:    pct(agg.uses, analysis.SampleSize*constants.DeckSize),
		})
	}

	deckStats := make([]domain.DeckStat, 0, len(analysis.DeckUse))
	for id, agg := range analysis.DeckUse {
		deckStats = append(deckStats, domain.DeckStat{
			DeckID:      id,
			GamesPlayed: agg.uses,
			GamesWon:    agg.wins,
			WinRate:     pct(agg.wins, agg.uses),
			PickRate:    pct(agg.uses, analysis.SampleSize),
		})
	}

	snapshot := &domain.MetaSnapshot{
		SampleSize:  analysis.SampleSize,
		TotalDecks:  len(analysis.DeckUse),
		Description: fmt.Sprintf("Ladder meta over %d deck results", analysis.SampleSize),
	}
	return s.snapshots.Save(ctx, snapshot, cardStats, deckStats)
}

func (s *AnalyzerService) renderReport(analysis *Analysis) string {
	var b strings.Builder
	line := strings.Repeat("=", 70)

	fmt.Fprintln(&b, line)
	fmt.Fprintln(&b, "CLASH ROYALE META ANALYSIS REPORT")
	fmt.Fprintln(&b, line)
	fmt.Fprintf(&b, "\nGenerated: %s\n", time.Now().UTC().Format(time.RFC1123))
	fmt.Fprintf(&b, "Deck results analyzed: %d\n", analysis.SampleSize)
	fmt.Fprintf(&b, "Unique decks: %d\n", len(analysis.DeckUse))
	fmt.Fprintf(&b, "Unique cards seen: %d\n", len(analysis.CardUse))

	s.renderTopUsed(&b, analysis, line)
	s.renderWinRates(&b, analysis, line)
	s.renderMetaScores(&b, analysis, line)
	s.renderSynergies(&b, analysis, line)
	s.renderTopDecks(&b, analysis, line)

	return b.String()
}

func (s *AnalyzerService) renderTopUsed(b *strings.Builder, analysis *Analysis, line string) {
	fmt.Fprintf(b, "\n%s\nTOP %d MOST USED CARDS\n%s\n", line, constants.TopUsedCards, line)
	fmt.Fprintf(b, "%-5s %-22s %-12s %-8s %-8s %-8s\n", "Rank", "Card", "Rarity", "Uses", "Usage%", "Win%")

	type row struct {
		id  int
		agg *cardAgg
	}
	rows := make([]row, 0, len(analysis.CardUse))
	for id, agg := range analysis.CardUse {
		rows = append(rows, row{id, agg})
	}
	sort.Slice(rows, func(i, j int) bool {
		if rows[i].agg.uses != rows[j].agg.uses {
			return rows[i].agg.uses > rows[j].agg.uses
		}
		return rows[i].id < rows[j].id
	})

	for rank, r := range rows {
		if rank >= constants.TopUsedCards {
			break
		}
		card := s.cardName(analysis, r.id)
		usage := pct(r.agg.uses, analysis.SampleSize*constants.DeckSize)
		fmt.Fprintf(b, "%-5d %-22s %-12s %-8d %-8.2f %-8.2f\n",
			rank+1, card.Name, card.Rarity, r.agg.uses, usage, pct(r.agg.wins, r.agg.uses))
	}
}

func (s *AnalyzerService) renderWinRates(b *strings.Builder, analysis *Analysis, line string) {
	fmt.Fprintf(b, "\n%s\nTOP %d HIGHEST WIN RATE CARDS (min %d uses)\n%s\n",
		line, constants.TopWinRateCards, constants.CardWinRateMinUses, line)
	fmt.Fprintf(b, "%-5s %-22s %-12s %-8s %-8s\n", "Rank", "Card", "Rarity", "Uses", "Win%")

	type row struct {
		id      int
		uses    int
		winRate float64
	}
	var rows []row
	for id, agg := range analysis.CardUse {
		if agg.uses >= constants.CardWinRateMinUses {
			rows = append(rows, row{id, agg.uses, pct(agg.wins, agg.uses)})
		}
	}
	sort.Slice(rows, func(i, j int) bool {
		if rows[i].winRate != rows[j].winRate {
			return rows[i].winRate > rows[j].winRate
		}
		return rows[i].id < rows[j].id
	})

	for rank, r := range rows {
		if rank >= constants.TopWinRateCards {
			break
		}
		card := s.cardName(analysis, r.id)
		fmt.Fprintf(b, "%-5d %-22s %-12s %-8d %-8.2f\n", rank+1, card.Name, card.Rarity, r.uses, r.winRate)
	}
}

// renderMetaScores ranks cards by usage x win rate, the "most meta" view.
func (s *AnalyzerService) renderMetaScores(b *strings.Builder, analysis *Analysis, line string) {
	fmt.Fprintf(b, "\n%s\nTOP %d MOST META CARDS (usage x win rate, min %d uses)\n%s\n",
		line, constants.TopMetaCards, constants.MetaScoreMinUses, line)
	fmt.Fprintf(b, "%-5s %-22s %-10s %-10s %-10s\n", "Rank", "Card", "Usage%", "Win%", "Score")

	type row struct {
		id         int
		usage, win float64
		score      float64
	}
	var rows []row
	for id, agg := range analysis.CardUse {
		if agg.uses < constants.MetaScoreMinUses {
			continue
		}
		usage := pct(agg.uses, analysis.SampleSize*constants.DeckSize)
		win := pct(agg.wins, agg.uses)
		rows = append(rows, row{id, usage, win, usage * win})
	}
	sort.Slice(rows, func(i, j int) bool {
		if rows[i].score != rows[j].score {
			return rows[i].score > rows[j].score
		}
		return rows[i].id < rows[j].id
	})

	for rank, r := range rows {
		if rank >= constants.TopMetaCards {
			break
		}
		card := s.cardName(analysis, r.id)
		fmt.Fprintf(b, "%-5d %-22s %-10.2f %-10.2f %-10.2f\n", rank+1, card.Name, r.usage, r.win, r.score)
	}
}

func (s *AnalyzerService) renderSynergies(b *strings.Builder, analysis *Analysis, line string) {
	fmt.Fprintf(b, "\n%s\nTOP %d SYNERGY PAIRS (min %d uses)\n%s\n",
		line, constants.TopSynergyPairs, constants.PairMinUses, line)
	fmt.Fprintf(b, "%-5s %-45s %-8s %-8s\n", "Rank", "Pair", "Uses", "Win%")

	type row struct {
		key     pairKey
		uses    int
		winRate float64
	}
	var rows []row
	for key, agg := range analysis.PairUse {
		if agg.uses >= constants.PairMinUses {
			rows = append(rows, row{key, agg.uses, pct(agg.wins, agg.uses)})
		}
	}
	sort.Slice(rows, func(i, j int) bool {
		if rows[i].winRate != rows[j].winRate {
			return rows[i].winRate > rows[j].winRate
		}
		if rows[i].uses != rows[j].uses {
			return rows[i].uses > rows[j].uses
		}
		return rows[i].key.a < rows[j].key.a
	})

	for rank, r := range rows {
		if rank >= constants.TopSynergyPairs {
			break
		}
		pair := fmt.Sprintf("%s + %s", s.cardName(analysis, r.key.a).Name, s.cardName(analysis, r.key.b).Name)
		fmt.Fprintf(b, "%-5d %-45s %-8d %-8.2f\n", rank+1, pair, r.uses, r.winRate)
	}
}

func (s *AnalyzerService) renderTopDecks(b *strings.Builder, analysis *Analysis, line string) {
	fmt.Fprintf(b, "\n%s\nTOP %d DECKS BY USAGE\n%s\n", line, constants.TopDecks, line)
	fmt.Fprintf(b, "%-5s %-8s %-8s %s\n", "Rank", "Uses", "Win%", "Cards")

	type row struct {
		id  int64
		agg *deckAgg
	}
	rows := make([]row, 0, len(analysis.DeckUse))
	for id, agg := range analysis.DeckUse {
		rows = append(rows, row{id, agg})
	}
	sort.Slice(rows, func(i, j int) bool {
		if rows[i].agg.uses != rows[j].agg.uses {
			return rows[i].agg.uses > rows[j].agg.uses
		}
		return rows[i].id < rows[j].id
	})

	for rank, r := range rows {
		if rank >= constants.TopDecks {
			break
		}
		names := make([]string, 0, constants.DeckSize)
		for _, id := range analysis.DeckCards[r.id] {
			names = append(names, s.cardName(analysis, id).Name)
		}
		fmt.Fprintf(b, "%-5d %-8d %-8.2f %s\n",
			rank+1, r.agg.uses, pct(r.agg.wins, r.agg.uses), strings.Join(names, ", "))
	}
}

func (s *AnalyzerService) cardName(analysis *Analysis, id int) domain.Card {
	if card, ok := analysis.CardMap[id]; ok {
		return card
	}
	return domain.Card{ID: id, Name: fmt.Sprintf("Card_%d", id), Rarity: "?"}
}

func pct(part, whole int) float64 {
	if whole == 0 {
		return 0
	}
	return float64(part) / float64(whole) * 100
}
