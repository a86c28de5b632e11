package build

import (
	"bytes"
	"errors"
	"fmt"
	"io"

	parse "github.com/tdewolff/parse/v2"
	"github.com/tdewolff/parse/v2/css"
	"go.uber.org/multierr"
	"go.uber.org/zap"
)

var ErrMalformedOutput = errors.New("malformed stylesheet")

// Verify tokenizes compiled stylesheet and reports every parse error and
// block left unclosed at the end of input.
func Verify(data []byte, log *zap.Logger) error {
	if log == nil {
		log = zap.NewNop()
	}

	parser := css.NewParser(parse.NewInput(bytes.NewReader(data)), false)

	var (
		err                     error
		rulesets, atRules, decl int
	)
	for {
		gt, tt, _ := parser.Next()

		switch gt {
		case css.ErrorGrammar:
			if parser.HasParseError() {
				err = multierr.Append(err, fmt.Errorf("%w: %w", ErrMalformedOutput, parser.Err()))
				continue
			}
			if e := parser.Err(); e != nil && !errors.Is(e, io.EOF) {
				return fmt.Errorf("unable to tokenize stylesheet: %w", e)
			}
			log.Debug("Stylesheet verified", zap.Int("rulesets", rulesets), zap.Int("at-rules", atRules), zap.Int("declarations", decl), zap.Error(err))
			return err
		case css.BeginRulesetGrammar:
			rulesets++
		case css.BeginAtRuleGrammar, css.AtRuleGrammar:
			atRules++
		case css.DeclarationGrammar, css.CustomPropertyGrammar:
			decl++
		case css.EndRulesetGrammar, css.EndAtRuleGrammar:
			// blocks still open at the end of input are closed by error token
			if tt == css.ErrorToken {
				err = multierr.Append(err, fmt.Errorf("%w: unclosed block at offset %d", ErrMalformedOutput, parser.Offset()))
			}
		}
	}
}
