package models

import "math"

// PassingWeight является порогом, с которого прогноз сотрудничества
// считается достаточным для смены поставщика.
const PassingWeight = 0.5

type weightBand struct {
	threshold float64
	weight    float64
}

// Диапазоны разницы цен в процентах: чем больше разрыв
// между текущей и будущей ценой, тем выше вес.
var priceGapWeights = []weightBand{
	{threshold: 5, weight: 0.2},
	{threshold: 10, weight: 0.4},
	{threshold: 30, weight: 0.8},
	{threshold: 100, weight: 1},
}

// Диапазоны порога скидки: близкие пороги достижимее далеких.
var discountAmountWeights = []weightBand{
	{threshold: 50, weight: 0.3},
	{threshold: 100, weight: 0.4},
	{threshold: 99999, weight: 1},
}

// Диапазоны прогресса к порогу скидки в процентах, по убыванию.
var completionWeights = []weightBand{
	{threshold: 90, weight: 1},
	{threshold: 70, weight: 0.8},
	{threshold: 60, weight: 0.5},
	{threshold: 0, weight: 0.1},
}

// WeightForPriceGap возвращает вес по разнице цен в процентах
func WeightForPriceGap(gapPercent float64) float64 {
	for _, band := range priceGapWeights {
		if gapPercent <= band.threshold {
			return band.weight
		}
	}
	return 1
}

// WeightForDiscountAmount возвращает вес по порогу скидки
func WeightForDiscountAmount(minAmount int64) float64 {
	for _, band := range discountAmountWeights {
		if float64(minAmount) <= band.threshold {
			return band.weight
		}
	}
	return 1
}

// WeightForCompletion возвращает вес по проценту выполнения порога скидки
func WeightForCompletion(completePercent float64) float64 {
	for _, band := range completionWeights {
		if completePercent >= band.threshold {
			return band.weight
		}
	}
	return 0.1
}

// CooperationWeight усредняет три веса и округляет до одного знака
func CooperationWeight(gapPercent float64, minAmount int64, completePercent float64) float64 {
	sum := WeightForPriceGap(gapPercent) +
		WeightForDiscountAmount(minAmount) +
		WeightForCompletion(completePercent)
	return math.Round(sum/3*10) / 10
}
